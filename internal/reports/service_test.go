package reports

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gestoria-erp/gestoria-erp/internal/filings"
	"github.com/gestoria-erp/gestoria-erp/internal/taxcal"
)

type staticSource []filings.Filing

func (s staticSource) List(ctx context.Context, filter filings.FilingFilter) ([]filings.Filing, error) {
	var out []filings.Filing
	for _, f := range s {
		if filter.Year != 0 && f.Year != filter.Year {
			continue
		}
		if filter.ModelCode != "" && f.ModelCode != filter.ModelCode {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func newTestService(source FilingSource, now time.Time) *Service {
	return NewService(source, slog.Default(), func() time.Time { return now })
}

// quarterFiling builds a 1T filing over the April 1-20 window.
func quarterFiling(id, client, model string, status filings.FilingStatus, submittedAt *time.Time) filings.Filing {
	return filings.Filing{
		ID: id, ClientID: client, ClientName: "Client " + client,
		ModelCode: model, PeriodLabel: "1T", Year: 2025,
		PeriodStart: date(2025, time.April, 1),
		PeriodEnd:   date(2025, time.April, 20),
		Status:      status,
		SubmittedAt: submittedAt,
	}
}

func TestKPIsCompletionRate(t *testing.T) {
	source := staticSource{
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		quarterFiling("f2", "b", "303", filings.StatusPresented, ptr(date(2025, time.April, 12))),
		quarterFiling("f3", "c", "303", filings.StatusPresented, ptr(date(2025, time.April, 15))),
		quarterFiling("f4", "d", "303", filings.StatusNotStarted, nil),
	}
	svc := newTestService(source, date(2025, time.June, 1))

	kpis, err := svc.KPIs(context.Background(), filings.FilingFilter{Year: 2025})
	require.NoError(t, err)
	require.Equal(t, 4, kpis.Total)
	require.Equal(t, 3, kpis.Presented)
	require.Equal(t, 1, kpis.NotStarted)
	require.InDelta(t, 75.0, kpis.CompletionRate, 0.001)
}

func TestKPIsLeadTimeAverage(t *testing.T) {
	source := staticSource{
		// 9 and 14 days from the April 1 window start.
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		quarterFiling("f2", "b", "303", filings.StatusPresented, ptr(date(2025, time.April, 15))),
		// No submission instant; excluded from the lead-time metric only.
		quarterFiling("f3", "c", "303", filings.StatusInProgress, nil),
	}
	svc := newTestService(source, date(2025, time.June, 1))

	kpis, err := svc.KPIs(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.InDelta(t, 11.5, kpis.LeadTimeAvgDays, 0.001)
	require.InDelta(t, 100.0, kpis.OnTimePct, 0.001)
}

func TestKPIsDueSoonAndOverdue(t *testing.T) {
	now := date(2025, time.April, 18)
	source := staticSource{
		// Ends in 2 days: due in 3 and due in 7.
		quarterFiling("f1", "a", "303", filings.StatusNotStarted, nil),
		// Already presented: excluded from due alerts.
		quarterFiling("f2", "b", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		// Window ended March 20: overdue.
		{
			ID: "f3", ClientID: "c", ModelCode: "111", PeriodLabel: "M02", Year: 2025,
			PeriodStart: date(2025, time.March, 1), PeriodEnd: date(2025, time.March, 20),
			Status: filings.StatusInProgress,
		},
	}
	svc := newTestService(source, now)

	kpis, err := svc.KPIs(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, kpis.DueIn3)
	require.Equal(t, 2, kpis.DueIn7)
	require.Equal(t, 1, kpis.Overdue)
}

func TestKPIsOnTimeAndEfficiency(t *testing.T) {
	source := staticSource{
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		// Presented five days after the window closed.
		quarterFiling("f2", "b", "303", filings.StatusPresented, ptr(date(2025, time.April, 25))),
	}
	svc := newTestService(source, date(2025, time.June, 1))

	kpis, err := svc.KPIs(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.InDelta(t, 50.0, kpis.OnTimePct, 0.001)
	// (presented - late) / total = (2 - 1) / 2.
	require.InDelta(t, 50.0, kpis.EfficiencyScore, 0.001)
}

func TestKPIsEmptyDataset(t *testing.T) {
	svc := newTestService(staticSource{}, date(2025, time.June, 1))
	kpis, err := svc.KPIs(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.Zero(t, kpis.Total)
	require.Zero(t, kpis.CompletionRate)
	require.InDelta(t, 100.0, kpis.OnTimePct, 0.001)
}

func TestByModelSortedAlphabetically(t *testing.T) {
	source := staticSource{
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		quarterFiling("f2", "a", "111", filings.StatusNotStarted, nil),
		quarterFiling("f3", "b", "130", filings.StatusInProgress, nil),
	}
	svc := newTestService(source, date(2025, time.June, 1))

	summaries, err := svc.ByModel(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, "111", summaries[0].ModelCode)
	require.Equal(t, "130", summaries[1].ModelCode)
	require.Equal(t, "303", summaries[2].ModelCode)
	require.InDelta(t, 100.0, summaries[2].CompletionRate, 0.001)
}

func TestByAssigneeBucketsUnassigned(t *testing.T) {
	withAssignee := quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 10)))
	withAssignee.AssigneeID = ptr("maria")
	source := staticSource{
		withAssignee,
		quarterFiling("f2", "b", "303", filings.StatusNotStarted, nil),
	}
	svc := newTestService(source, date(2025, time.June, 1))

	summaries, err := svc.ByAssignee(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := make(map[string]AssigneeSummary)
	for _, s := range summaries {
		byID[s.AssigneeID] = s
	}
	require.Contains(t, byID, "maria")
	require.Contains(t, byID, UnassignedBucket)
	require.Equal(t, 1, byID["maria"].Presented)
	require.Equal(t, 1, byID[UnassignedBucket].NotStarted)
}

func TestByClientCountsDistinctModels(t *testing.T) {
	source := staticSource{
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		quarterFiling("f2", "a", "111", filings.StatusNotStarted, nil),
		quarterFiling("f3", "a", "303", filings.StatusNotStarted, nil),
	}
	svc := newTestService(source, date(2025, time.June, 1))

	summaries, err := svc.ByClient(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 2, summaries[0].ActiveModels)
	require.Equal(t, 2, summaries[0].NotStarted)
	require.Equal(t, 1, summaries[0].Presented)
}

func TestTrendsChronological(t *testing.T) {
	source := staticSource{
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.July, 5))),
		quarterFiling("f2", "b", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		quarterFiling("f3", "c", "303", filings.StatusPresented, ptr(date(2025, time.April, 15))),
		quarterFiling("f4", "d", "303", filings.StatusNotStarted, nil),
	}
	svc := newTestService(source, date(2025, time.August, 1))

	series, err := svc.Trends(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, "2025-04", series[0].Month)
	require.Equal(t, 2, series[0].Presented)
	require.Equal(t, "2025-07", series[1].Month)
	require.Equal(t, 1, series[1].Presented)
}

func TestExceptionsDetectsLateOverdueAndDuplicates(t *testing.T) {
	now := date(2025, time.May, 10)
	source := staticSource{
		// Presented after the window closed.
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 25))),
		// Still open past the deadline.
		quarterFiling("f2", "b", "303", filings.StatusInProgress, nil),
		// Same natural key twice.
		quarterFiling("f3", "c", "303", filings.StatusNotStarted, nil),
		quarterFiling("f4", "c", "303", filings.StatusNotStarted, nil),
	}
	svc := newTestService(source, now)

	exceptions, err := svc.Exceptions(context.Background(), filings.FilingFilter{})
	require.NoError(t, err)
	require.Len(t, exceptions.Late, 1)
	require.Equal(t, "f1", exceptions.Late[0].FilingID)
	require.Len(t, exceptions.Duplicates, 1)
	require.Equal(t, "c", exceptions.Duplicates[0].ClientID)
	require.Equal(t, 2, exceptions.Duplicates[0].Count)

	overdueIDs := make([]string, 0, len(exceptions.Overdue))
	for _, e := range exceptions.Overdue {
		overdueIDs = append(overdueIDs, e.FilingID)
	}
	require.Contains(t, overdueIDs, "f2")
}

func TestExportWritesAllSheets(t *testing.T) {
	source := staticSource{
		quarterFiling("f1", "a", "303", filings.StatusPresented, ptr(date(2025, time.April, 10))),
		quarterFiling("f2", "b", "303", filings.StatusNotStarted, nil),
	}
	svc := newTestService(source, date(2025, time.June, 1))

	var buf strings.Builder
	err := svc.Export(context.Background(), filings.FilingFilter{}, taxcal.NewCSVWorkbook(&buf))
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "# KPIs")
	require.Contains(t, out, "# By Model")
	require.Contains(t, out, "# By Assignee")
	require.Contains(t, out, "# Detail")
	require.Contains(t, out, "Completion Rate %,50.0")
	require.Contains(t, out, "Client a,303,1T,2025")
}
