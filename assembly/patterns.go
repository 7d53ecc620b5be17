package assembly

import (
	"sort"
	"time"

	"github.com/aeobrien/colloquy/storage"
)

// Trend describes how session frequency is changing over the project's
// history.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// returnGapDays is the gap after which a session counts as a return to the
// project rather than a continuation of regular work.
const returnGapDays = 14

// DeferralStats summarises the project's deferred-task history.
type DeferralStats struct {
	TotalDeferrals    int
	DeferredTasks     int
	MostDeferred      string
	MostDeferredCount int
}

// Patterns is the cross-session behavioural picture computed from a
// project's history. Only terminal sessions count; an in-flight session
// says nothing about cadence yet.
type Patterns struct {
	CountedSessions      int
	DaysSinceLastSession int
	AverageGapDays       float64
	IsReturn             bool
	Trend                Trend
	AbandonedSessions    int
	Deferrals            DeferralStats
}

// ComputePatterns derives Patterns from raw history. Pure: same inputs,
// same output. With no terminal sessions it returns zero counts, a stable
// trend, and IsReturn false.
func ComputePatterns(sessions []storage.Session, summaries []storage.Summary, deferred []DeferredTask, now time.Time) Patterns {
	p := Patterns{Trend: TrendStable}

	var times []time.Time
	for _, s := range sessions {
		if !s.Status.IsTerminal() {
			continue
		}
		t := s.LastActiveAt
		if s.CompletedAt != nil {
			t = *s.CompletedAt
		}
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	p.CountedSessions = len(times)
	if len(times) > 0 {
		last := times[len(times)-1]
		p.DaysSinceLastSession = int(now.Sub(last).Hours() / 24)
		p.IsReturn = p.DaysSinceLastSession >= returnGapDays
	}

	var gaps []float64
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]).Hours()/24)
	}
	if len(gaps) > 0 {
		sum := 0.0
		for _, g := range gaps {
			sum += g
		}
		p.AverageGapDays = sum / float64(len(gaps))
		p.Trend = gapTrend(gaps)
	}

	for _, sum := range summaries {
		if sum.CompletionStatus == storage.CompletionAutoSummarised {
			p.AbandonedSessions++
		}
	}

	for _, d := range deferred {
		p.Deferrals.TotalDeferrals += d.Count
		p.Deferrals.DeferredTasks++
		if d.Count > p.Deferrals.MostDeferredCount {
			p.Deferrals.MostDeferred = d.Title
			p.Deferrals.MostDeferredCount = d.Count
		}
	}
	return p
}

// gapTrend compares the average gap across the earlier and later halves of
// history. Shrinking gaps mean the user is engaging more often.
func gapTrend(gaps []float64) Trend {
	if len(gaps) < 2 {
		return TrendStable
	}
	mid := len(gaps) / 2
	earlier := mean(gaps[:mid])
	later := mean(gaps[mid:])
	switch {
	case earlier == 0:
		return TrendStable
	case later < earlier*0.75:
		return TrendIncreasing
	case later > earlier*1.25:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
