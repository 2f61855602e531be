// Package clients holds the client master data and the assignment of tax
// obligation types to clients.
package clients

import "time"

// ClientType distinguishes the fiscal profile of a client, which constrains
// the obligation types that may be assigned.
type ClientType string

const (
	TypeSelfEmployed ClientType = "SELF_EMPLOYED"
	TypeCompany      ClientType = "COMPANY"
	TypeIndividual   ClientType = "INDIVIDUAL"
)

// Client is one managed taxpayer.
type Client struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      ClientType `json:"type"`
	TaxID     string     `json:"taxId"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TaxAssignment subscribes a client to one obligation type. A client has at
// most one assignment per model code.
type TaxAssignment struct {
	ID        string     `json:"id"`
	ClientID  string     `json:"clientId"`
	ModelCode string     `json:"modelCode"`
	Cadence   string     `json:"cadence"`
	Active    bool       `json:"active"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// EffectiveActive reports whether the assignment currently generates
// obligations. A set end date always wins over the flag.
func (a TaxAssignment) EffectiveActive() bool {
	if a.EndDate != nil {
		return false
	}
	return a.Active
}

// ClientFilter narrows client listings.
type ClientFilter struct {
	Active *bool
	Search string
}

// ActiveAssignment is one (active client, active assignment) pair, the unit
// the filing engine fans out over.
type ActiveAssignment struct {
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
	ModelCode  string `json:"modelCode"`
}
