package models

// InteractionSeverity grades how dangerous a drug pair is
type InteractionSeverity string

const (
	SeverityLow      InteractionSeverity = "low"
	SeverityMedium   InteractionSeverity = "medium"
	SeverityHigh     InteractionSeverity = "high"
	SeverityCritical InteractionSeverity = "critical"
)

// DrugInteraction is a known pairwise interaction between two drugs.
// The pair is unordered; lookups are case-insensitive.
type DrugInteraction struct {
	DrugA          string              `json:"drug_a"`
	DrugB          string              `json:"drug_b"`
	Severity       InteractionSeverity `json:"severity"`
	Description    string              `json:"description"`
	Recommendation string              `json:"recommendation"`
}
