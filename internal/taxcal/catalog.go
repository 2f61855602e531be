package taxcal

import "sort"

// Catalog is the externally configured set of obligation types keyed by model
// code. It is read-only during a generation run.
type Catalog map[string]ObligationType

// Codes returns the managed model codes in stable order.
func (c Catalog) Codes() []string {
	codes := make([]string, 0, len(c))
	for code := range c {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// CadencesFor resolves the allowed cadences for a model code, falling back to
// {QUARTERLY, ANNUAL} when the model is unconfigured or has an empty set.
func (c Catalog) CadencesFor(code string) []Cadence {
	if entry, ok := c[code]; ok && len(entry.Cadences) > 0 {
		return entry.Cadences
	}
	return []Cadence{CadenceQuarterly, CadenceAnnual}
}

// DefaultCatalog mirrors the AEAT model table the agency manages. Cadence sets
// follow the official filing rules per model.
func DefaultCatalog() Catalog {
	return Catalog{
		"100": {Code: "100", Name: "Personal income tax - annual return", Cadences: []Cadence{CadenceAnnual}},
		"111": {Code: "111", Name: "Withholdings - employment income", Cadences: []Cadence{CadenceMonthly, CadenceQuarterly}},
		"130": {Code: "130", Name: "Personal income tax - instalment payments", Cadences: []Cadence{CadenceQuarterly}},
		"131": {Code: "131", Name: "Personal income tax - instalments (simplified)", Cadences: []Cadence{CadenceQuarterly}},
		"180": {Code: "180", Name: "Withholdings - rental income", Cadences: []Cadence{CadenceAnnual}},
		"190": {Code: "190", Name: "Withholdings - annual summary", Cadences: []Cadence{CadenceAnnual}},
		"200": {Code: "200", Name: "Corporate income tax", Cadences: []Cadence{CadenceAnnual}},
		"202": {Code: "202", Name: "Corporate tax pre-payments", Cadences: []Cadence{CadenceInstallment}},
		"303": {Code: "303", Name: "VAT - self assessment", Cadences: []Cadence{CadenceMonthly, CadenceQuarterly}},
		"347": {Code: "347", Name: "Annual third-party operations", Cadences: []Cadence{CadenceAnnual}},
		"349": {Code: "349", Name: "Intra-community operations", Cadences: []Cadence{CadenceMonthly, CadenceQuarterly}},
		"390": {Code: "390", Name: "VAT - annual summary", Cadences: []Cadence{CadenceAnnual}},
		"720": {Code: "720", Name: "Foreign assets declaration", Cadences: []Cadence{CadenceAnnual}},
	}
}
