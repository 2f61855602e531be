package reports

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/gestoria-erp/gestoria-erp/internal/filings"
)

// FilingSource yields normalized filings with their period windows joined in.
// Satisfied by the filing repository.
type FilingSource interface {
	List(ctx context.Context, filter filings.FilingFilter) ([]filings.Filing, error)
}

// Service computes the analytics surface.
type Service struct {
	source FilingSource
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the reports service.
func NewService(source FilingSource, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{source: source, logger: logger, now: now}
}

const dayDuration = 24 * time.Hour

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func pct1(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

// leadDays counts whole days from the period start to the submission,
// clamped at zero for early submissions.
func leadDays(submittedAt, periodStart time.Time) int {
	days := math.Round(submittedAt.Sub(periodStart).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// dueInDays is the signed day distance from now to the period end, rounded
// up. Negative means overdue.
func dueInDays(periodEnd, now time.Time) int {
	return int(math.Ceil(periodEnd.Sub(now).Hours() / 24))
}

// KPIs computes the headline metrics. Rows missing an optional field are
// excluded only from the metrics that need it.
func (s *Service) KPIs(ctx context.Context, filter filings.FilingFilter) (KPIReport, error) {
	rows, err := s.source.List(ctx, filter)
	if err != nil {
		return KPIReport{}, err
	}

	var report KPIReport
	var ltSum, ltCount, late, onTime int
	now := s.now()

	for _, f := range rows {
		switch f.Status {
		case filings.StatusInProgress:
			report.InProgress++
		case filings.StatusPresented:
			report.Presented++
		default:
			report.NotStarted++
		}

		if f.SubmittedAt != nil && !f.PeriodStart.IsZero() {
			ltSum += leadDays(*f.SubmittedAt, f.PeriodStart)
			ltCount++
			if !f.PeriodEnd.IsZero() {
				if f.SubmittedAt.After(f.PeriodEnd) {
					late++
				} else {
					onTime++
				}
			}
		}

		if !f.PeriodEnd.IsZero() && f.Status != filings.StatusPresented {
			diff := dueInDays(f.PeriodEnd, now)
			if diff <= 3 {
				report.DueIn3++
			}
			if diff <= 7 {
				report.DueIn7++
			}
			if diff < 0 {
				report.Overdue++
			}
		}
	}

	report.Total = report.NotStarted + report.InProgress + report.Presented
	report.Workload = report.NotStarted + report.InProgress
	report.CompletionRate = pct1(report.Presented, report.Total)
	if ltCount > 0 {
		report.LeadTimeAvgDays = round1(float64(ltSum) / float64(ltCount))
	}
	if late+onTime > 0 {
		report.OnTimePct = pct1(onTime, late+onTime)
	} else {
		report.OnTimePct = 100
	}
	report.EfficiencyScore = pct1(report.Presented-late, report.Total)
	return report, nil
}

// ByModel aggregates per obligation code, sorted alphabetically.
func (s *Service) ByModel(ctx context.Context, filter filings.FilingFilter) ([]ModelSummary, error) {
	rows, err := s.source.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	type acc struct {
		summary ModelSummary
		ltSum   int
		ltCount int
	}
	buckets := make(map[string]*acc)
	now := s.now()

	for _, f := range rows {
		b, ok := buckets[f.ModelCode]
		if !ok {
			b = &acc{summary: ModelSummary{ModelCode: f.ModelCode}}
			buckets[f.ModelCode] = b
		}
		b.summary.Total++
		switch f.Status {
		case filings.StatusInProgress:
			b.summary.InProgress++
		case filings.StatusPresented:
			b.summary.Presented++
		default:
			b.summary.NotStarted++
		}
		if !f.PeriodEnd.IsZero() && f.Status != filings.StatusPresented && dueInDays(f.PeriodEnd, now) < 0 {
			b.summary.Overdue++
		}
		if f.SubmittedAt != nil && !f.PeriodStart.IsZero() {
			b.ltSum += leadDays(*f.SubmittedAt, f.PeriodStart)
			b.ltCount++
		}
	}

	summaries := make([]ModelSummary, 0, len(buckets))
	for _, b := range buckets {
		b.summary.CompletionRate = pct1(b.summary.Presented, b.summary.Total)
		if b.ltCount > 0 {
			b.summary.LeadTimeAvgDays = round1(float64(b.ltSum) / float64(b.ltCount))
		}
		summaries = append(summaries, b.summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ModelCode < summaries[j].ModelCode
	})
	return summaries, nil
}

// ByAssignee aggregates per preparer. Filings without an assignee land in the
// "unassigned" bucket.
func (s *Service) ByAssignee(ctx context.Context, filter filings.FilingFilter) ([]AssigneeSummary, error) {
	rows, err := s.source.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*AssigneeSummary)
	now := s.now()

	for _, f := range rows {
		id := UnassignedBucket
		if f.AssigneeID != nil && *f.AssigneeID != "" {
			id = *f.AssigneeID
		}
		b, ok := buckets[id]
		if !ok {
			b = &AssigneeSummary{AssigneeID: id}
			buckets[id] = b
		}
		b.Assigned++
		switch f.Status {
		case filings.StatusInProgress:
			b.InProgress++
		case filings.StatusPresented:
			b.Presented++
		default:
			b.NotStarted++
		}
		if !f.PeriodEnd.IsZero() && f.Status != filings.StatusPresented && f.PeriodEnd.Before(now) {
			b.Overdue++
		}
	}

	summaries := make([]AssigneeSummary, 0, len(buckets))
	for _, b := range buckets {
		b.CompletionRate = pct1(b.Presented, b.Assigned)
		if b.Assigned > 0 {
			b.OnTrackPct = round1(float64(b.Assigned-b.Overdue) / float64(b.Assigned) * 100)
		}
		summaries = append(summaries, *b)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].AssigneeID < summaries[j].AssigneeID
	})
	return summaries, nil
}

// ByClient aggregates per client with a distinct obligation-type count.
func (s *Service) ByClient(ctx context.Context, filter filings.FilingFilter) ([]ClientSummary, error) {
	rows, err := s.source.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	type acc struct {
		summary ClientSummary
		models  map[string]bool
	}
	buckets := make(map[string]*acc)
	now := s.now()

	for _, f := range rows {
		b, ok := buckets[f.ClientID]
		if !ok {
			b = &acc{
				summary: ClientSummary{ClientID: f.ClientID, ClientName: f.ClientName},
				models:  make(map[string]bool),
			}
			buckets[f.ClientID] = b
		}
		b.models[f.ModelCode] = true
		switch f.Status {
		case filings.StatusInProgress:
			b.summary.InProgress++
		case filings.StatusPresented:
			b.summary.Presented++
		default:
			b.summary.NotStarted++
		}
		if !f.PeriodEnd.IsZero() && f.Status != filings.StatusPresented && f.PeriodEnd.Before(now) {
			b.summary.Overdue++
		}
	}

	summaries := make([]ClientSummary, 0, len(buckets))
	for _, b := range buckets {
		total := b.summary.NotStarted + b.summary.InProgress + b.summary.Presented
		b.summary.ActiveModels = len(b.models)
		b.summary.CompletionRate = pct1(b.summary.Presented, total)
		summaries = append(summaries, b.summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ClientName < summaries[j].ClientName
	})
	return summaries, nil
}

// Trends buckets submissions by calendar month, sorted chronologically.
func (s *Service) Trends(ctx context.Context, filter filings.FilingFilter) ([]TrendPoint, error) {
	rows, err := s.source.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	type acc struct {
		presented int
		ltSum     int
		ltCount   int
	}
	buckets := make(map[string]*acc)

	for _, f := range rows {
		if f.SubmittedAt == nil {
			continue
		}
		month := f.SubmittedAt.Format("2006-01")
		b, ok := buckets[month]
		if !ok {
			b = &acc{}
			buckets[month] = b
		}
		b.presented++
		if !f.PeriodStart.IsZero() {
			b.ltSum += leadDays(*f.SubmittedAt, f.PeriodStart)
			b.ltCount++
		}
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	series := make([]TrendPoint, 0, len(months))
	for _, m := range months {
		b := buckets[m]
		point := TrendPoint{Month: m, Presented: b.presented}
		if b.ltCount > 0 {
			point.LeadTimeAvgDays = round1(float64(b.ltSum) / float64(b.ltCount))
		}
		series = append(series, point)
	}
	return series, nil
}

// Exception scans: late submissions, overdue open filings, and natural-key
// duplicates that signal a data-integrity problem upstream.
func (s *Service) Exceptions(ctx context.Context, filter filings.FilingFilter) (Exceptions, error) {
	rows, err := s.source.List(ctx, filter)
	if err != nil {
		return Exceptions{}, err
	}

	result := Exceptions{
		Late:       []ExceptionEntry{},
		Overdue:    []ExceptionEntry{},
		Duplicates: []DuplicateEntry{},
	}
	now := s.now()
	keyCount := make(map[string]int)
	keySample := make(map[string]filings.Filing)

	for _, f := range rows {
		key := f.Key()
		keyCount[key]++
		keySample[key] = f

		entry := ExceptionEntry{
			FilingID:    f.ID,
			ClientID:    f.ClientID,
			ClientName:  f.ClientName,
			ModelCode:   f.ModelCode,
			PeriodLabel: f.PeriodLabel,
			Year:        f.Year,
			DueDate:     f.PeriodEnd,
			SubmittedAt: f.SubmittedAt,
		}
		switch {
		case f.SubmittedAt != nil && !f.PeriodEnd.IsZero() && f.SubmittedAt.After(f.PeriodEnd):
			result.Late = append(result.Late, entry)
		case !f.PeriodEnd.IsZero() && f.Status != filings.StatusPresented && f.PeriodEnd.Before(now):
			result.Overdue = append(result.Overdue, entry)
		}
	}

	for key, count := range keyCount {
		if count < 2 {
			continue
		}
		f := keySample[key]
		result.Duplicates = append(result.Duplicates, DuplicateEntry{
			ClientID:    f.ClientID,
			ModelCode:   f.ModelCode,
			PeriodLabel: f.PeriodLabel,
			Year:        f.Year,
			Count:       count,
		})
	}
	sort.Slice(result.Duplicates, func(i, j int) bool {
		a, b := result.Duplicates[i], result.Duplicates[j]
		if a.ClientID != b.ClientID {
			return a.ClientID < b.ClientID
		}
		return a.ModelCode < b.ModelCode
	})
	return result, nil
}

// Detail lists the filings behind the aggregates, for the export detail
// sheet and drill-down views.
func (s *Service) Detail(ctx context.Context, filter filings.FilingFilter) ([]filings.Filing, error) {
	return s.source.List(ctx, filter)
}
