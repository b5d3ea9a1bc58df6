package domain

type ExecutionPath string

const (
	PathFast  ExecutionPath = "FAST"
	PathSmart ExecutionPath = "SMART"
	PathDeep  ExecutionPath = "DEEP"
)

func (p ExecutionPath) Valid() bool {
	switch p {
	case PathFast, PathSmart, PathDeep:
		return true
	}
	return false
}

type AlternativeKind string

const (
	AlternativeSavings   AlternativeKind = "savings_plan"
	AlternativeFinancing AlternativeKind = "financing"
	AlternativeCheaper   AlternativeKind = "cheaper_alternative"
)

// AlternativePath describes a route to acquiring an item the user cannot
// afford today.
type AlternativePath struct {
	Kind           AlternativeKind `json:"kind"`
	ItemID         string          `json:"itemId"`
	Description    string          `json:"description"`
	Viability      float64         `json:"viability"`
	MonthsToSave   int             `json:"monthsToSave,omitempty"`
	MonthlyPayment float64         `json:"monthlyPayment,omitempty"`
	AlternativeID  string          `json:"alternativeId,omitempty"`
	Savings        float64         `json:"savings,omitempty"`
}
