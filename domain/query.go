package domain

type SearchFilters struct {
	MaxPrice          *float64 `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	Category          string   `json:"category,omitempty"`
	FinancingRequired bool     `json:"financingRequired,omitempty"`
}

type PurchaseRecord struct {
	ItemID    string `json:"itemId"`
	Category  string `json:"category"`
	ClusterID string `json:"clusterId,omitempty"`
}

type UserProfile struct {
	UserID              string           `json:"userId"`
	MonthlyIncome       float64          `json:"monthlyIncome" validate:"gte=0"`
	MonthlyExpenses     float64          `json:"monthlyExpenses" validate:"gte=0"`
	Savings             float64          `json:"savings"`
	CreditScore         float64          `json:"creditScore" validate:"gte=0"`
	ExistingDebt        float64          `json:"existingDebt" validate:"gte=0"`
	PreferredCategories []string         `json:"preferredCategories,omitempty"`
	PurchaseHistory     []PurchaseRecord `json:"purchaseHistory,omitempty"`
}

// Query is the validated, normalized form of a search request.
type Query struct {
	Text     string
	Filters  SearchFilters
	Profile  *UserProfile
	HasImage bool
}

type SearchRequest struct {
	Query     string         `json:"query"`
	Profile   *UserProfile   `json:"profile,omitempty" validate:"omitempty"`
	Filters   *SearchFilters `json:"filters,omitempty" validate:"omitempty"`
	UseCache  *bool          `json:"useCache,omitempty"`
	ForcePath ExecutionPath  `json:"forcePath,omitempty"`
	HasImage  bool           `json:"hasImage,omitempty"`
}

// CacheEnabled defaults to true when the caller did not say.
func (r SearchRequest) CacheEnabled() bool {
	return r.UseCache == nil || *r.UseCache
}
