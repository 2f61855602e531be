// Package reports computes read-only analytics over filings and their
// periods. Nothing here is persisted; every number is derived on read.
package reports

import "time"

// KPIReport is the headline metric block for a filter set.
type KPIReport struct {
	Total           int     `json:"total"`
	NotStarted      int     `json:"notStarted"`
	InProgress      int     `json:"inProgress"`
	Presented       int     `json:"presented"`
	CompletionRate  float64 `json:"completionRate"`
	LeadTimeAvgDays float64 `json:"leadTimeAvgDays"`
	OnTimePct       float64 `json:"onTimePct"`
	EfficiencyScore float64 `json:"efficiencyScore"`
	DueIn3          int     `json:"dueIn3"`
	DueIn7          int     `json:"dueIn7"`
	Overdue         int     `json:"overdue"`
	Workload        int     `json:"workload"`
}

// ModelSummary aggregates one obligation code.
type ModelSummary struct {
	ModelCode       string  `json:"modelCode"`
	Total           int     `json:"total"`
	NotStarted      int     `json:"notStarted"`
	InProgress      int     `json:"inProgress"`
	Presented       int     `json:"presented"`
	CompletionRate  float64 `json:"completionRate"`
	Overdue         int     `json:"overdue"`
	LeadTimeAvgDays float64 `json:"leadTimeAvgDays"`
}

// UnassignedBucket collects filings without an assignee in the by-assignee
// summary.
const UnassignedBucket = "unassigned"

// AssigneeSummary aggregates one preparer's workload.
type AssigneeSummary struct {
	AssigneeID     string  `json:"assigneeId"`
	Assigned       int     `json:"assigned"`
	NotStarted     int     `json:"notStarted"`
	InProgress     int     `json:"inProgress"`
	Presented      int     `json:"presented"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completionRate"`
	OnTrackPct     float64 `json:"onTrackPct"`
}

// ClientSummary aggregates one client across its obligation types.
type ClientSummary struct {
	ClientID       string  `json:"clientId"`
	ClientName     string  `json:"clientName"`
	ActiveModels   int     `json:"activeModels"`
	NotStarted     int     `json:"notStarted"`
	InProgress     int     `json:"inProgress"`
	Presented      int     `json:"presented"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completionRate"`
}

// TrendPoint is one calendar month of submission activity.
type TrendPoint struct {
	Month           string  `json:"month"`
	Presented       int     `json:"presented"`
	LeadTimeAvgDays float64 `json:"leadTimeAvgDays"`
}

// ExceptionEntry is one filing flagged by the exception scan.
type ExceptionEntry struct {
	FilingID    string     `json:"filingId"`
	ClientID    string     `json:"clientId"`
	ClientName  string     `json:"clientName,omitempty"`
	ModelCode   string     `json:"modelCode"`
	PeriodLabel string     `json:"period"`
	Year        int        `json:"year"`
	DueDate     time.Time  `json:"dueDate"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// DuplicateEntry flags a (client, model, period) key occurring more than
// once. Under correct lifecycle usage this list is empty.
type DuplicateEntry struct {
	ClientID    string `json:"clientId"`
	ModelCode   string `json:"modelCode"`
	PeriodLabel string `json:"period"`
	Year        int    `json:"year"`
	Count       int    `json:"count"`
}

// Exceptions bundles the three data-quality scans.
type Exceptions struct {
	Late       []ExceptionEntry `json:"late"`
	Overdue    []ExceptionEntry `json:"overdue"`
	Duplicates []DuplicateEntry `json:"duplicates"`
}
