package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

const detailRowLimit = 20

// completion is one order that finished production, with everyone who
// touched it along the way.
type completion struct {
	ord         order.Order
	completedAt time.Time
	seconds     int64
	actors      []uuid.UUID
}

// BuildReport computes the analytics report from the full order and history
// sets. It is a pure function: no I/O, no caching, same inputs produce the
// same report. Time buckets are computed in the location of now.
func BuildReport(
	orders []order.Order,
	entries []history.StatusChange,
	userNames map[uuid.UUID]string,
	period Period,
	now time.Time,
) Report {
	byOrder := groupByOrder(orders, entries)

	completions, anomalies := collectCompletions(orders, byOrder)

	report := Report{
		Period:             period,
		Buckets:            fillBuckets(period, completions, now),
		StatusDistribution: statusDistribution(orders),
		UserPerformance:    userPerformance(completions, userNames),
		Details:            detailRows(completions, userNames),
		Anomalies:          anomalies,
		GeneratedAt:        now,
	}

	return report
}

// groupByOrder indexes history entries by order, dropping entries whose
// order no longer exists, and sorts each group by changed_at ascending.
func groupByOrder(orders []order.Order, entries []history.StatusChange) map[uuid.UUID][]history.StatusChange {
	known := make(map[uuid.UUID]struct{}, len(orders))
	for i := range orders {
		known[orders[i].ID] = struct{}{}
	}

	byOrder := make(map[uuid.UUID][]history.StatusChange)
	for _, e := range entries {
		if _, ok := known[e.OrderID]; !ok {
			continue
		}
		byOrder[e.OrderID] = append(byOrder[e.OrderID], e)
	}

	for id := range byOrder {
		group := byOrder[id]
		sort.Slice(group, func(i, j int) bool {
			if group[i].ChangedAt.Equal(group[j].ChangedAt) {
				return group[i].ID < group[j].ID
			}

			return group[i].ChangedAt.Before(group[j].ChangedAt)
		})
	}

	return byOrder
}

// collectCompletions finds every order with a defined production duration.
// Negative durations mean the history was recorded out of order; those
// orders are reported as anomalies and kept out of all averages.
func collectCompletions(
	orders []order.Order,
	byOrder map[uuid.UUID][]history.StatusChange,
) ([]completion, int) {
	var completions []completion
	anomalies := 0

	for i := range orders {
		group := byOrder[orders[i].ID]
		if len(group) == 0 {
			continue
		}

		seconds := history.TotalProductionSeconds(group)
		if seconds == nil {
			continue
		}
		if *seconds < 0 {
			anomalies++
			continue
		}

		completedAt := history.CompletedAt(group)
		if completedAt == nil {
			continue
		}

		completions = append(completions, completion{
			ord:         orders[i],
			completedAt: *completedAt,
			seconds:     *seconds,
			actors:      distinctActors(group),
		})
	}

	return completions, anomalies
}

// distinctActors returns every user that authored at least one entry,
// in order of first appearance.
func distinctActors(group []history.StatusChange) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(group))
	var actors []uuid.UUID
	for _, e := range group {
		if _, ok := seen[e.ChangedBy]; ok {
			continue
		}
		seen[e.ChangedBy] = struct{}{}
		actors = append(actors, e.ChangedBy)
	}

	return actors
}

// fillBuckets builds the fixed bucket set for the period and distributes
// completions into it by completion timestamp. Every bucket is present even
// when empty, ordered oldest to newest.
func fillBuckets(period Period, completions []completion, now time.Time) []Bucket {
	starts, ends, labels := bucketBounds(period, now)

	buckets := make([]Bucket, len(starts))
	sums := make([]float64, len(starts))
	for i := range starts {
		buckets[i] = Bucket{
			Label: labels[i],
			Start: starts[i],
		}
	}

	for _, c := range completions {
		for i := range starts {
			if !c.completedAt.Before(starts[i]) && c.completedAt.Before(ends[i]) {
				buckets[i].Count++
				sums[i] += float64(c.seconds)
				break
			}
		}
	}

	for i := range buckets {
		if buckets[i].Count == 0 {
			continue
		}
		meanSeconds := sums[i] / float64(buckets[i].Count)
		buckets[i].MeanMinutes = int(math.Round(meanSeconds / 60))
	}

	return buckets
}

// bucketBounds returns the window for each bucket of the period: 7 calendar
// days, 4 calendar weeks starting Sunday, or 6 calendar months.
func bucketBounds(period Period, now time.Time) (starts, ends []time.Time, labels []string) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch period {
	case PeriodWeekly:
		weekStart := today.AddDate(0, 0, -int(today.Weekday()))
		for i := 3; i >= 0; i-- {
			start := weekStart.AddDate(0, 0, -7*i)
			starts = append(starts, start)
			ends = append(ends, start.AddDate(0, 0, 7))
			labels = append(labels, start.Format("02/01"))
		}
	case PeriodMonthly:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		for i := 5; i >= 0; i-- {
			start := monthStart.AddDate(0, -i, 0)
			starts = append(starts, start)
			ends = append(ends, start.AddDate(0, 1, 0))
			labels = append(labels, start.Format("01/2006"))
		}
	default:
		for i := 6; i >= 0; i-- {
			start := today.AddDate(0, 0, -i)
			starts = append(starts, start)
			ends = append(ends, start.AddDate(0, 0, 1))
			labels = append(labels, start.Format("02/01"))
		}
	}

	return starts, ends, labels
}

// statusDistribution counts orders per status over the full order set, in
// floor order, with the canonical labels.
func statusDistribution(orders []order.Order) []StatusCount {
	counts := make(map[status.Status]int, len(orders))
	for i := range orders {
		counts[orders[i].Status]++
	}

	all := status.All()
	out := make([]StatusCount, 0, len(all))
	for _, s := range all {
		out = append(out, StatusCount{
			Status: s,
			Label:  s.Label(),
			Count:  counts[s],
		})
	}

	return out
}

// userPerformance credits every actor of a completed order with that order
// and its duration, sorted by completed count descending.
func userPerformance(completions []completion, userNames map[uuid.UUID]string) []UserPerformance {
	type acc struct {
		completed    int
		totalSeconds int64
	}

	accs := make(map[uuid.UUID]*acc)
	for _, c := range completions {
		for _, actor := range c.actors {
			a, ok := accs[actor]
			if !ok {
				a = &acc{}
				accs[actor] = a
			}
			a.completed++
			a.totalSeconds += c.seconds
		}
	}

	out := make([]UserPerformance, 0, len(accs))
	for id, a := range accs {
		mean := int64(math.Round(float64(a.totalSeconds) / float64(a.completed)))
		out = append(out, UserPerformance{
			UserID:       id,
			DisplayName:  displayName(id, userNames),
			Completed:    a.completed,
			TotalSeconds: a.totalSeconds,
			MeanSeconds:  mean,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return out[i].Completed > out[j].Completed
		}
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}

		return out[i].UserID.String() < out[j].UserID.String()
	})

	return out
}

// detailRows lists the most recent completions, newest first, capped.
func detailRows(completions []completion, userNames map[uuid.UUID]string) []DetailRow {
	sorted := make([]completion, len(completions))
	copy(sorted, completions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].completedAt.Equal(sorted[j].completedAt) {
			return sorted[i].ord.Number > sorted[j].ord.Number
		}

		return sorted[i].completedAt.After(sorted[j].completedAt)
	})

	if len(sorted) > detailRowLimit {
		sorted = sorted[:detailRowLimit]
	}

	out := make([]DetailRow, 0, len(sorted))
	for _, c := range sorted {
		seconds := c.seconds
		names := make([]string, 0, len(c.actors))
		for _, actor := range c.actors {
			names = append(names, displayName(actor, userNames))
		}
		sort.Strings(names)

		out = append(out, DetailRow{
			OrderNumber:       c.ord.Number,
			PatientName:       c.ord.PatientName,
			CompletedAt:       c.completedAt,
			DurationSeconds:   seconds,
			DurationFormatted: history.FormatDuration(&seconds),
			Users:             names,
		})
	}

	return out
}

func displayName(id uuid.UUID, userNames map[uuid.UUID]string) string {
	if name, ok := userNames[id]; ok && name != "" {
		return name
	}

	return id.String()
}
