package service

import (
	"strings"

	"github.com/dosewise/dosewise/internal/models"
)

// pairKey is the case-insensitive, order-independent lookup key for a drug pair
type pairKey struct {
	a, b string
}

func keyFor(drugA, drugB string) pairKey {
	a := strings.ToLower(strings.TrimSpace(drugA))
	b := strings.ToLower(strings.TrimSpace(drugB))
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// InteractionTable is the static drug-interaction reference data, loaded once
// at startup and immutable afterwards.
type InteractionTable struct {
	byPair map[pairKey]models.DrugInteraction
}

// NewInteractionTable builds the lookup table from the given records
func NewInteractionTable(records []models.DrugInteraction) *InteractionTable {
	table := &InteractionTable{byPair: make(map[pairKey]models.DrugInteraction, len(records))}
	for _, rec := range records {
		table.byPair[keyFor(rec.DrugA, rec.DrugB)] = rec
	}
	return table
}

// DefaultInteractionTable returns the table loaded with the built-in
// reference data set.
func DefaultInteractionTable() *InteractionTable {
	return NewInteractionTable(knownInteractions)
}

// Check returns every known interaction between the new drug and the
// patient's existing drugs. Pure lookup: no mutation, no I/O.
func (t *InteractionTable) Check(newDrug string, existingDrugs []string) []models.DrugInteraction {
	var matches []models.DrugInteraction
	for _, existing := range existingDrugs {
		if rec, ok := t.byPair[keyFor(newDrug, existing)]; ok {
			matches = append(matches, rec)
		}
	}
	return matches
}

// knownInteractions is the built-in reference data set
var knownInteractions = []models.DrugInteraction{
	{
		DrugA:          "Warfarin",
		DrugB:          "Aspirin",
		Severity:       models.SeverityCritical,
		Description:    "Greatly increased risk of bleeding",
		Recommendation: "Avoid combination; consult prescriber before use",
	},
	{
		DrugA:          "Warfarin",
		DrugB:          "Ibuprofen",
		Severity:       models.SeverityHigh,
		Description:    "NSAIDs increase bleeding risk with anticoagulants",
		Recommendation: "Use paracetamol for pain relief instead",
	},
	{
		DrugA:          "Sildenafil",
		DrugB:          "Nitroglycerin",
		Severity:       models.SeverityCritical,
		Description:    "Combined use can cause severe hypotension",
		Recommendation: "Never combine; seek immediate medical advice",
	},
	{
		DrugA:          "Simvastatin",
		DrugB:          "Clarithromycin",
		Severity:       models.SeverityHigh,
		Description:    "Macrolide antibiotics raise statin levels, risking myopathy",
		Recommendation: "Suspend the statin during the antibiotic course",
	},
	{
		DrugA:          "Lisinopril",
		DrugB:          "Spironolactone",
		Severity:       models.SeverityHigh,
		Description:    "Risk of hyperkalemia when combined",
		Recommendation: "Monitor potassium levels regularly",
	},
	{
		DrugA:          "Sertraline",
		DrugB:          "Tramadol",
		Severity:       models.SeverityHigh,
		Description:    "Increased risk of serotonin syndrome",
		Recommendation: "Watch for agitation, tremor and fever; consult prescriber",
	},
	{
		DrugA:          "Digoxin",
		DrugB:          "Amiodarone",
		Severity:       models.SeverityHigh,
		Description:    "Amiodarone raises digoxin levels, risking toxicity",
		Recommendation: "Digoxin dose usually needs to be halved",
	},
	{
		DrugA:          "Ciprofloxacin",
		DrugB:          "Theophylline",
		Severity:       models.SeverityMedium,
		Description:    "Quinolones reduce theophylline clearance",
		Recommendation: "Monitor theophylline levels during treatment",
	},
	{
		DrugA:          "Clopidogrel",
		DrugB:          "Omeprazole",
		Severity:       models.SeverityMedium,
		Description:    "Omeprazole can reduce the antiplatelet effect of clopidogrel",
		Recommendation: "Consider pantoprazole as an alternative",
	},
	{
		DrugA:          "Levothyroxine",
		DrugB:          "Calcium Carbonate",
		Severity:       models.SeverityLow,
		Description:    "Calcium reduces levothyroxine absorption",
		Recommendation: "Separate doses by at least four hours",
	},
}
