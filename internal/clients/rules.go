package clients

import (
	"errors"
	"fmt"

	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

var (
	// ErrUnknownModel is returned when an assignment names a model code
	// outside the rule table.
	ErrUnknownModel = errors.New("clients: unknown tax model")
	// ErrModelNotAllowed is returned when the model is incompatible with
	// the client's fiscal profile.
	ErrModelNotAllowed = errors.New("clients: tax model not allowed for client type")
	// ErrCadenceNotAllowed is returned when the requested cadence is not
	// supported by the model.
	ErrCadenceNotAllowed = errors.New("clients: cadence not allowed for tax model")
)

// AssignmentRule constrains which client profiles may subscribe to a model
// and at which cadences.
type AssignmentRule struct {
	AllowedTypes    []ClientType
	AllowedCadences []taxcal.Cadence
}

var assignmentRules = map[string]AssignmentRule{
	"100": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeIndividual}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceAnnual}},
	"111": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceMonthly, taxcal.CadenceQuarterly}},
	"130": {AllowedTypes: []ClientType{TypeSelfEmployed}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceQuarterly}},
	"131": {AllowedTypes: []ClientType{TypeSelfEmployed}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceQuarterly}},
	"180": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceAnnual}},
	"190": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceAnnual}},
	"200": {AllowedTypes: []ClientType{TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceAnnual}},
	"202": {AllowedTypes: []ClientType{TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceInstallment}},
	"303": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceMonthly, taxcal.CadenceQuarterly}},
	"347": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceAnnual}},
	"349": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceMonthly, taxcal.CadenceQuarterly}},
	"390": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceAnnual}},
	"720": {AllowedTypes: []ClientType{TypeSelfEmployed, TypeCompany}, AllowedCadences: []taxcal.Cadence{taxcal.CadenceAnnual}},
}

// RuleFor looks up the assignment rule of a model code.
func RuleFor(modelCode string) (AssignmentRule, bool) {
	rule, ok := assignmentRules[modelCode]
	return rule, ok
}

// ValidateAssignment checks that the client profile may subscribe to the
// model at the requested cadence.
func ValidateAssignment(clientType ClientType, modelCode string, cadence taxcal.Cadence) error {
	rule, ok := assignmentRules[modelCode]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, modelCode)
	}

	typeOK := false
	for _, t := range rule.AllowedTypes {
		if t == clientType {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return fmt.Errorf("%w: model %s, type %s", ErrModelNotAllowed, modelCode, clientType)
	}

	for _, c := range rule.AllowedCadences {
		if c == cadence {
			return nil
		}
	}
	return fmt.Errorf("%w: model %s, cadence %s", ErrCadenceNotAllowed, modelCode, cadence)
}
