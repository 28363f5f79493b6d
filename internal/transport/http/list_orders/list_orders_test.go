package listorders

import (
	"testing"

	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

func TestToModelParsesFilters(t *testing.T) {
	id := uuid.New()
	tech := uuid.New()

	query := &queryOrdersRequest{
		Ids:        []string{id.String()},
		Numbers:    []string{"LAB-2025-00001"},
		Statuses:   []string{"pending", "in-progress"},
		AssignedTo: []string{tech.String()},
		Search:     "maria",
		Limit:      25,
		Offset:     50,
	}

	filter, err := query.ToModel()
	if err != nil {
		t.Fatalf("ToModel failed: %v", err)
	}

	if len(filter.IDs) != 1 || filter.IDs[0] != id {
		t.Fatalf("expected id %s, got %v", id, filter.IDs)
	}
	if len(filter.Statuses) != 2 || filter.Statuses[1] != status.StatusInProgress {
		t.Fatalf("expected parsed statuses, got %v", filter.Statuses)
	}
	if len(filter.AssignedTo) != 1 || filter.AssignedTo[0] != tech {
		t.Fatalf("expected assignee %s, got %v", tech, filter.AssignedTo)
	}
	if filter.Search != "maria" || filter.Limit != 25 || filter.Offset != 50 {
		t.Fatalf("unexpected filter %+v", filter)
	}
}

func TestToModelRejectsUnknownStatus(t *testing.T) {
	query := &queryOrdersRequest{Statuses: []string{"done"}}

	if _, err := query.ToModel(); err == nil {
		t.Fatalf("expected an error for an unknown status")
	}
}

func TestToModelRejectsMalformedIDs(t *testing.T) {
	query := &queryOrdersRequest{Ids: []string{"not-a-uuid"}}
	if _, err := query.ToModel(); err == nil {
		t.Fatalf("expected an error for a malformed order id")
	}

	query = &queryOrdersRequest{AssignedTo: []string{"not-a-uuid"}}
	if _, err := query.ToModel(); err == nil {
		t.Fatalf("expected an error for a malformed assignee id")
	}
}
