package taxcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestClassifyPendingBeforeWindow(t *testing.T) {
	start := date(2025, time.April, 1)
	end := date(2025, time.April, 20)
	now := date(2025, time.March, 22)

	info := Classify(start, end, now)
	require.Equal(t, PeriodPending, info.Status)
	require.NotNil(t, info.DaysToStart)
	require.Equal(t, 10, *info.DaysToStart)
	require.Nil(t, info.DaysToEnd)
}

func TestClassifyOpenOnBothBoundaries(t *testing.T) {
	start := date(2025, time.April, 1)
	end := date(2025, time.April, 20)

	onStart := Classify(start, end, start)
	require.Equal(t, PeriodOpen, onStart.Status)
	require.NotNil(t, onStart.DaysToEnd)
	require.Equal(t, 19, *onStart.DaysToEnd)

	onEnd := Classify(start, end, end)
	require.Equal(t, PeriodOpen, onEnd.Status)
	require.NotNil(t, onEnd.DaysToEnd)
	require.Equal(t, 0, *onEnd.DaysToEnd)
}

func TestClassifyClosedAfterEnd(t *testing.T) {
	start := date(2025, time.April, 1)
	end := date(2025, time.April, 20)

	dayAfter := Classify(start, end, date(2025, time.April, 21))
	require.Equal(t, PeriodClosed, dayAfter.Status)
	require.Nil(t, dayAfter.DaysToStart)
	require.Nil(t, dayAfter.DaysToEnd)

	later := Classify(start, end, date(2025, time.April, 25))
	require.Equal(t, PeriodClosed, later.Status)
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	start := date(2025, time.April, 1)
	end := date(2025, time.April, 20)

	// Late evening on the end date still counts as inside the window.
	eveningOfEnd := time.Date(2025, time.April, 20, 23, 59, 0, 0, time.UTC)
	require.Equal(t, PeriodOpen, Classify(start, end, eveningOfEnd).Status)

	// Late evening the day before the window opens is still PENDING.
	eveBeforeStart := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	info := Classify(start, end, eveBeforeStart)
	require.Equal(t, PeriodPending, info.Status)
	require.Equal(t, 1, *info.DaysToStart)
}
