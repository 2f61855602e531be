package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gestoria-erp/gestoria-erp/internal/filings"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

// Export writes the full report workbook: a KPI sheet, a by-model sheet, a
// by-assignee sheet, and a per-filing detail sheet. Sections are computed
// concurrently; writes happen in sheet order once all sections are ready.
func (s *Service) Export(ctx context.Context, filter filings.FilingFilter, w taxcal.WorkbookWriter) error {
	var (
		kpis      KPIReport
		models    []ModelSummary
		assignees []AssigneeSummary
		detail    []filings.Filing
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		kpis, err = s.KPIs(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		models, err = s.ByModel(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		assignees, err = s.ByAssignee(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		detail, err = s.Detail(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reports: build export: %w", err)
	}

	if err := writeKPISheet(w, kpis); err != nil {
		return err
	}
	if err := writeModelSheet(w, models); err != nil {
		return err
	}
	if err := writeAssigneeSheet(w, assignees); err != nil {
		return err
	}
	if err := writeDetailSheet(w, detail); err != nil {
		return err
	}
	return w.Flush()
}

func writeKPISheet(w taxcal.WorkbookWriter, kpis KPIReport) error {
	if err := w.Sheet("KPIs"); err != nil {
		return err
	}
	if err := w.Row("Metric", "Value"); err != nil {
		return err
	}
	records := [][2]string{
		{"Total", strconv.Itoa(kpis.Total)},
		{"Not Started", strconv.Itoa(kpis.NotStarted)},
		{"In Progress", strconv.Itoa(kpis.InProgress)},
		{"Presented", strconv.Itoa(kpis.Presented)},
		{"Completion Rate %", formatFloat(kpis.CompletionRate)},
		{"Lead Time Avg Days", formatFloat(kpis.LeadTimeAvgDays)},
		{"On Time %", formatFloat(kpis.OnTimePct)},
		{"Efficiency Score", formatFloat(kpis.EfficiencyScore)},
		{"Due In 3 Days", strconv.Itoa(kpis.DueIn3)},
		{"Due In 7 Days", strconv.Itoa(kpis.DueIn7)},
		{"Overdue", strconv.Itoa(kpis.Overdue)},
	}
	for _, record := range records {
		if err := w.Row(record[0], record[1]); err != nil {
			return err
		}
	}
	return nil
}

func writeModelSheet(w taxcal.WorkbookWriter, models []ModelSummary) error {
	if err := w.Sheet("By Model"); err != nil {
		return err
	}
	if err := w.Row("Model", "Total", "Not Started", "In Progress", "Presented",
		"Completion %", "Overdue", "Lead Time Avg"); err != nil {
		return err
	}
	for _, m := range models {
		if err := w.Row(m.ModelCode, strconv.Itoa(m.Total), strconv.Itoa(m.NotStarted),
			strconv.Itoa(m.InProgress), strconv.Itoa(m.Presented),
			formatFloat(m.CompletionRate), strconv.Itoa(m.Overdue),
			formatFloat(m.LeadTimeAvgDays)); err != nil {
			return err
		}
	}
	return nil
}

func writeAssigneeSheet(w taxcal.WorkbookWriter, assignees []AssigneeSummary) error {
	if err := w.Sheet("By Assignee"); err != nil {
		return err
	}
	if err := w.Row("Assignee", "Assigned", "Not Started", "In Progress", "Presented",
		"Completion %", "Overdue", "On Track %"); err != nil {
		return err
	}
	for _, a := range assignees {
		if err := w.Row(a.AssigneeID, strconv.Itoa(a.Assigned), strconv.Itoa(a.NotStarted),
			strconv.Itoa(a.InProgress), strconv.Itoa(a.Presented),
			formatFloat(a.CompletionRate), strconv.Itoa(a.Overdue),
			formatFloat(a.OnTrackPct)); err != nil {
			return err
		}
	}
	return nil
}

func writeDetailSheet(w taxcal.WorkbookWriter, detail []filings.Filing) error {
	if err := w.Sheet("Detail"); err != nil {
		return err
	}
	if err := w.Row("Client", "Model", "Period", "Year", "Window Start", "Window End",
		"Status", "Submitted At", "Assignee"); err != nil {
		return err
	}
	for _, f := range detail {
		submitted := ""
		if f.SubmittedAt != nil {
			submitted = f.SubmittedAt.Format(time.RFC3339)
		}
		assignee := ""
		if f.AssigneeID != nil {
			assignee = *f.AssigneeID
		}
		if err := w.Row(f.ClientName, f.ModelCode, f.PeriodLabel, strconv.Itoa(f.Year),
			f.PeriodStart.Format("2006-01-02"), f.PeriodEnd.Format("2006-01-02"),
			string(f.Status), submitted, assignee); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
