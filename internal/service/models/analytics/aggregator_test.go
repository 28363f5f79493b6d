package analytics

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

// 2025-03-15 is a Saturday, so the weekly window starts on Sunday 2025-03-09.
var testNow = time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)

func testOrder(num string, st status.Status) order.Order {
	return order.Order{
		ID:          uuid.New(),
		Number:      num,
		PatientName: "Paciente " + num,
		Status:      st,
	}
}

func productionChain(orderID, techID uuid.UUID, completedAt time.Time, seconds int64) []history.StatusChange {
	old := status.StatusPending

	return []history.StatusChange{
		{
			ID:        1,
			OrderID:   orderID,
			OldStatus: &old,
			NewStatus: status.StatusInProgress,
			ChangedBy: techID,
			ChangedAt: completedAt.Add(-time.Duration(seconds) * time.Second),
		},
		{
			ID:        2,
			OrderID:   orderID,
			NewStatus: status.StatusCompleted,
			ChangedBy: techID,
			ChangedAt: completedAt,
		},
	}
}

func TestBuildReportDailyHasSevenBucketsWhenEmpty(t *testing.T) {
	report := BuildReport(nil, nil, nil, PeriodDaily, testNow)

	if len(report.Buckets) != 7 {
		t.Fatalf("expected 7 daily buckets, got %d", len(report.Buckets))
	}
	if report.Buckets[0].Label != "09/03" {
		t.Fatalf("expected oldest bucket 09/03, got %q", report.Buckets[0].Label)
	}
	if report.Buckets[6].Label != "15/03" {
		t.Fatalf("expected newest bucket 15/03, got %q", report.Buckets[6].Label)
	}
	for _, b := range report.Buckets {
		if b.Count != 0 || b.MeanMinutes != 0 {
			t.Fatalf("expected empty bucket %s, got count=%d mean=%d", b.Label, b.Count, b.MeanMinutes)
		}
	}
	if len(report.StatusDistribution) != len(status.All()) {
		t.Fatalf("expected %d distribution slices, got %d", len(status.All()), len(report.StatusDistribution))
	}
	if len(report.Details) != 0 {
		t.Fatalf("expected no detail rows, got %d", len(report.Details))
	}
	if report.Anomalies != 0 {
		t.Fatalf("expected no anomalies, got %d", report.Anomalies)
	}
}

func TestBuildReportWeeklyAndMonthlyBucketCounts(t *testing.T) {
	weekly := BuildReport(nil, nil, nil, PeriodWeekly, testNow)
	if len(weekly.Buckets) != 4 {
		t.Fatalf("expected 4 weekly buckets, got %d", len(weekly.Buckets))
	}
	if weekly.Buckets[0].Label != "16/02" || weekly.Buckets[3].Label != "09/03" {
		t.Fatalf("unexpected weekly labels %q .. %q", weekly.Buckets[0].Label, weekly.Buckets[3].Label)
	}

	monthly := BuildReport(nil, nil, nil, PeriodMonthly, testNow)
	if len(monthly.Buckets) != 6 {
		t.Fatalf("expected 6 monthly buckets, got %d", len(monthly.Buckets))
	}
	if monthly.Buckets[0].Label != "10/2024" || monthly.Buckets[5].Label != "03/2025" {
		t.Fatalf("unexpected monthly labels %q .. %q", monthly.Buckets[0].Label, monthly.Buckets[5].Label)
	}
}

func TestBuildReportBucketCountsAndMeanMinutes(t *testing.T) {
	tech := uuid.New()

	today1 := testOrder("LAB-2025-00001", status.StatusCompleted)
	today2 := testOrder("LAB-2025-00002", status.StatusCompleted)
	earlier := testOrder("LAB-2025-00003", status.StatusCompleted)

	todayAt := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	earlierAt := time.Date(2025, time.March, 12, 16, 0, 0, 0, time.UTC)

	var entries []history.StatusChange
	entries = append(entries, productionChain(today1.ID, tech, todayAt, 3600)...)
	entries = append(entries, productionChain(today2.ID, tech, todayAt, 60)...)
	entries = append(entries, productionChain(earlier.ID, tech, earlierAt, 600)...)

	report := BuildReport([]order.Order{today1, today2, earlier}, entries, nil, PeriodDaily, testNow)

	last := report.Buckets[6]
	if last.Count != 2 {
		t.Fatalf("expected 2 completions today, got %d", last.Count)
	}
	// (3600+60)/2 = 1830s = 30.5min, rounded half up.
	if last.MeanMinutes != 31 {
		t.Fatalf("expected mean of 31 minutes, got %d", last.MeanMinutes)
	}

	wednesday := report.Buckets[3]
	if wednesday.Label != "12/03" {
		t.Fatalf("expected bucket 12/03 at index 3, got %q", wednesday.Label)
	}
	if wednesday.Count != 1 || wednesday.MeanMinutes != 10 {
		t.Fatalf("expected 1 completion of 10 minutes, got count=%d mean=%d", wednesday.Count, wednesday.MeanMinutes)
	}
}

func TestBuildReportCreditsEveryActorOfACompletedOrder(t *testing.T) {
	ana := uuid.New()
	bruno := uuid.New()

	ord := testOrder("LAB-2025-00010", status.StatusCompleted)
	start := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

	entries := []history.StatusChange{
		{ID: 1, OrderID: ord.ID, NewStatus: status.StatusInProgress, ChangedBy: ana, ChangedAt: start},
		{ID: 2, OrderID: ord.ID, NewStatus: status.StatusFinishing, ChangedBy: bruno, ChangedAt: start.Add(30 * time.Minute)},
		{ID: 3, OrderID: ord.ID, NewStatus: status.StatusCompleted, ChangedBy: ana, ChangedAt: start.Add(time.Hour)},
	}
	names := map[uuid.UUID]string{ana: "Ana", bruno: "Bruno"}

	report := BuildReport([]order.Order{ord}, entries, names, PeriodDaily, testNow)

	if len(report.UserPerformance) != 2 {
		t.Fatalf("expected 2 credited users, got %d", len(report.UserPerformance))
	}
	for _, p := range report.UserPerformance {
		if p.Completed != 1 {
			t.Fatalf("expected 1 completed order for %s, got %d", p.DisplayName, p.Completed)
		}
		if p.TotalSeconds != 3600 || p.MeanSeconds != 3600 {
			t.Fatalf("expected 3600s for %s, got total=%d mean=%d", p.DisplayName, p.TotalSeconds, p.MeanSeconds)
		}
	}
	if report.UserPerformance[0].DisplayName != "Ana" {
		t.Fatalf("expected Ana first on equal counts, got %q", report.UserPerformance[0].DisplayName)
	}

	if len(report.Details) != 1 {
		t.Fatalf("expected 1 detail row, got %d", len(report.Details))
	}
	row := report.Details[0]
	if !reflect.DeepEqual(row.Users, []string{"Ana", "Bruno"}) {
		t.Fatalf("expected both actors on the detail row, got %v", row.Users)
	}
	if row.DurationFormatted != "1h 0min" {
		t.Fatalf("expected duration 1h 0min, got %q", row.DurationFormatted)
	}
}

func TestBuildReportSkipsEntriesOfUnknownOrders(t *testing.T) {
	tech := uuid.New()
	entries := productionChain(uuid.New(), tech, testNow.Add(-time.Hour), 600)

	report := BuildReport(nil, entries, nil, PeriodDaily, testNow)

	if len(report.Details) != 0 {
		t.Fatalf("expected orphan entries to be dropped, got %d detail rows", len(report.Details))
	}
	for _, b := range report.Buckets {
		if b.Count != 0 {
			t.Fatalf("expected empty bucket %s, got %d", b.Label, b.Count)
		}
	}
}

func TestBuildReportCountsOutOfOrderHistoryAsAnomaly(t *testing.T) {
	tech := uuid.New()
	ord := testOrder("LAB-2025-00020", status.StatusCompleted)
	at := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

	// The completion was recorded before production started.
	entries := []history.StatusChange{
		{ID: 1, OrderID: ord.ID, NewStatus: status.StatusCompleted, ChangedBy: tech, ChangedAt: at},
		{ID: 2, OrderID: ord.ID, NewStatus: status.StatusInProgress, ChangedBy: tech, ChangedAt: at.Add(10 * time.Minute)},
	}

	report := BuildReport([]order.Order{ord}, entries, nil, PeriodDaily, testNow)

	if report.Anomalies != 1 {
		t.Fatalf("expected 1 anomaly, got %d", report.Anomalies)
	}
	if len(report.Details) != 0 {
		t.Fatalf("expected anomalous order out of the details, got %d rows", len(report.Details))
	}
	if len(report.UserPerformance) != 0 {
		t.Fatalf("expected no performance credit for an anomalous order, got %d", len(report.UserPerformance))
	}
}

func TestBuildReportCapsDetailRowsAtTwenty(t *testing.T) {
	tech := uuid.New()
	base := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

	var orders []order.Order
	var entries []history.StatusChange
	for i := 0; i < 25; i++ {
		ord := testOrder(fmt.Sprintf("LAB-2025-%05d", i+1), status.StatusCompleted)
		orders = append(orders, ord)
		entries = append(entries, productionChain(ord.ID, tech, base.Add(time.Duration(i)*time.Hour), 300)...)
	}

	report := BuildReport(orders, entries, nil, PeriodDaily, testNow)

	if len(report.Details) != 20 {
		t.Fatalf("expected 20 detail rows, got %d", len(report.Details))
	}
	if report.Details[0].OrderNumber != "LAB-2025-00025" {
		t.Fatalf("expected newest completion first, got %q", report.Details[0].OrderNumber)
	}
	if report.Details[19].OrderNumber != "LAB-2025-00006" {
		t.Fatalf("expected the 20th newest completion last, got %q", report.Details[19].OrderNumber)
	}
}

func TestBuildReportStatusDistributionUsesCanonicalLabels(t *testing.T) {
	orders := []order.Order{
		testOrder("LAB-2025-00030", status.StatusPending),
		testOrder("LAB-2025-00031", status.StatusPending),
		testOrder("LAB-2025-00032", status.StatusCompleted),
	}

	report := BuildReport(orders, nil, nil, PeriodDaily, testNow)

	byStatus := make(map[status.Status]StatusCount)
	for _, s := range report.StatusDistribution {
		byStatus[s.Status] = s
	}

	pending := byStatus[status.StatusPending]
	if pending.Count != 2 || pending.Label != "Pendente" {
		t.Fatalf("expected 2 pending orders labeled Pendente, got count=%d label=%q", pending.Count, pending.Label)
	}
	completed := byStatus[status.StatusCompleted]
	if completed.Count != 1 || completed.Label != "Concluído" {
		t.Fatalf("expected 1 completed order labeled Concluído, got count=%d label=%q", completed.Count, completed.Label)
	}
	delivered := byStatus[status.StatusDelivered]
	if delivered.Count != 0 || delivered.Label != "Entregue" {
		t.Fatalf("expected empty delivered slice labeled Entregue, got count=%d label=%q", delivered.Count, delivered.Label)
	}
}

func TestBuildReportIsDeterministic(t *testing.T) {
	tech := uuid.New()
	ord := testOrder("LAB-2025-00040", status.StatusCompleted)
	entries := productionChain(ord.ID, tech, testNow.Add(-2*time.Hour), 1800)
	names := map[uuid.UUID]string{tech: "Carla"}

	first := BuildReport([]order.Order{ord}, entries, names, PeriodDaily, testNow)
	second := BuildReport([]order.Order{ord}, entries, names, PeriodDaily, testNow)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical reports for identical inputs\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
