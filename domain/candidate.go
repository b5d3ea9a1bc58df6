package domain

// CandidateItem is a catalog item that survived discovery.
type CandidateItem struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description,omitempty"`
	Category           string  `json:"category"`
	ClusterID          string  `json:"clusterId,omitempty"`
	Price              float64 `json:"price"`
	Rating             float64 `json:"rating,omitempty"`
	ReviewCount        int     `json:"reviewCount,omitempty"`
	InStock            bool    `json:"inStock"`
	FinancingAvailable bool    `json:"financingAvailable,omitempty"`
	FinancingMonths    int     `json:"financingMonths,omitempty"`
	FinancingAPR       float64 `json:"financingApr,omitempty"`
	Similarity         float64 `json:"similarity"`
}

// SameGroup reports whether two items belong to the same diversity group.
// An item without a cluster only matches another item without one.
func (c CandidateItem) SameGroup(other CandidateItem) bool {
	return c.ClusterID == other.ClusterID
}

// SearchHit is a single similarity-search result.
type SearchHit struct {
	Item       CandidateItem
	Similarity float64
}

type RiskLevel string

const (
	RiskSafe    RiskLevel = "SAFE"
	RiskCaution RiskLevel = "CAUTION"
	RiskRisky   RiskLevel = "RISKY"
)

// AffordabilityVerdict is produced by the external affordability oracle.
// Neutral marks a verdict synthesized without consulting the oracle.
type AffordabilityVerdict struct {
	CanAffordCash      bool      `json:"canAffordCash"`
	CanAffordFinancing bool      `json:"canAffordFinancing"`
	Risk               RiskLevel `json:"riskLevel"`
	Score              float64   `json:"score"`
	Neutral            bool      `json:"neutral,omitempty"`
}

func (v AffordabilityVerdict) Affordable() bool {
	return v.CanAffordCash || v.CanAffordFinancing
}

func NeutralVerdict() AffordabilityVerdict {
	return AffordabilityVerdict{
		CanAffordCash:      true,
		CanAffordFinancing: true,
		Risk:               RiskSafe,
		Score:              100,
		Neutral:            true,
	}
}

type AssessedCandidate struct {
	Item    CandidateItem
	Verdict AffordabilityVerdict
}
