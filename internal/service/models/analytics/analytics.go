package analytics

import (
	"errors"
	"time"

	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

// Period selects the bucket granularity of a report.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod validates a raw period value.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Bucket is one time slot of a report. Buckets with no completions are
// present with zero values.
type Bucket struct {
	Label       string    `json:"label"`
	Start       time.Time `json:"start"`
	Count       int       `json:"count"`
	MeanMinutes int       `json:"meanMinutes"`
}

// StatusCount is one slice of the status distribution chart.
type StatusCount struct {
	Status status.Status `json:"status"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
}

// UserPerformance aggregates completed-order work per staff member. An order
// credits every user who authored any of its transitions.
type UserPerformance struct {
	UserID       uuid.UUID `json:"userId"`
	DisplayName  string    `json:"displayName"`
	Completed    int       `json:"completed"`
	TotalSeconds int64     `json:"totalSeconds"`
	MeanSeconds  int64     `json:"meanSeconds"`
}

// DetailRow is one line of the recent completions table.
type DetailRow struct {
	OrderNumber       string    `json:"orderNumber"`
	PatientName       string    `json:"patientName"`
	CompletedAt       time.Time `json:"completedAt"`
	DurationSeconds   int64     `json:"durationSeconds"`
	DurationFormatted string    `json:"durationFormatted"`
	Users             []string  `json:"users"`
}

// Report is the full analytics payload for one period granularity.
type Report struct {
	Period             Period            `json:"period"`
	Buckets            []Bucket          `json:"buckets"`
	StatusDistribution []StatusCount     `json:"statusDistribution"`
	UserPerformance    []UserPerformance `json:"userPerformance"`
	Details            []DetailRow       `json:"details"`
	Anomalies          int               `json:"anomalies"`
	GeneratedAt        time.Time         `json:"generatedAt"`
}
