package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/denteo/labflow/internal/dal/interfaces/ihistoryrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/iorderrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/ioutboxrepo"
	"github.com/denteo/labflow/internal/dal/interfaces/istationrepo"
	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/outbox"
	"github.com/denteo/labflow/internal/service/models/station"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/google/uuid"
)

// fakeStore is an in-memory unit of work. It backs the repositories itself,
// so a single instance observes everything a service call did.
type fakeStore struct {
	orders        map[uuid.UUID]order.Order
	entries       map[uuid.UUID][]history.StatusChange
	outbox        *fakeOutbox
	nextHistoryID int64

	appendErr error

	begun      int
	committed  int
	rolledBack int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  make(map[uuid.UUID]order.Order),
		entries: make(map[uuid.UUID][]history.StatusChange),
		outbox:  &fakeOutbox{},
	}
}

func (f *fakeStore) Begin(context.Context) error    { f.begun++; return nil }
func (f *fakeStore) Commit(context.Context) error   { f.committed++; return nil }
func (f *fakeStore) Rollback(context.Context) error { f.rolledBack++; return nil }

func (f *fakeStore) OrderRepository() iorderrepo.IOrderRepository       { return f }
func (f *fakeStore) HistoryRepository() ihistoryrepo.IHistoryRepository { return f }
func (f *fakeStore) OutboxRepository() ioutboxrepo.IOutboxRepository    { return f.outbox }
func (f *fakeStore) StationRepository() istationrepo.IStationRepository { return f }

func (f *fakeStore) Insert(_ context.Context, o order.Order) (order.Order, error) {
	o.ID = uuid.New()
	o.Number = fmt.Sprintf("LAB-2025-%05d", len(f.orders)+1)
	f.orders[o.ID] = o

	return o, nil
}

func (f *fakeStore) Query(_ context.Context, _ *order.QueryOrdersModel) ([]order.Order, error) {
	out := make([]order.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, o)
	}

	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}

	return o, nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, id uuid.UUID) (order.Order, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeStore) Update(ctx context.Context, id uuid.UUID, _ order.UpdateOrderModel) (order.Order, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeStore) SetStatus(_ context.Context, id uuid.UUID, s status.Status) error {
	o, ok := f.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = s
	f.orders[id] = o

	return nil
}

func (f *fakeStore) SetAttachmentPath(_ context.Context, id uuid.UUID, kind order.AttachmentKind, path string) error {
	o, ok := f.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	switch kind {
	case order.AttachmentPhoto:
		o.PhotoPath = &path
	case order.AttachmentScan:
		o.ScanFilePath = &path
	}
	f.orders[id] = o

	return nil
}

func (f *fakeStore) Append(_ context.Context, entry history.StatusChange) (history.StatusChange, error) {
	if f.appendErr != nil {
		return history.StatusChange{}, f.appendErr
	}

	f.nextHistoryID++
	entry.ID = f.nextHistoryID
	f.entries[entry.OrderID] = append(f.entries[entry.OrderID], entry)

	return entry, nil
}

func (f *fakeStore) GetLast(_ context.Context, orderID uuid.UUID) (history.StatusChange, error) {
	group := f.entries[orderID]
	if len(group) == 0 {
		return history.StatusChange{}, history.ErrNoStatusHistory
	}

	return group[len(group)-1], nil
}

func (f *fakeStore) ListByOrder(_ context.Context, orderID uuid.UUID) ([]history.StatusChange, error) {
	return f.entries[orderID], nil
}

func (f *fakeStore) ListAll(context.Context) ([]history.StatusChange, error) {
	var out []history.StatusChange
	for _, group := range f.entries {
		out = append(out, group...)
	}

	return out, nil
}

func (f *fakeStore) List(context.Context) ([]station.Station, error) { return nil, nil }

func (f *fakeStore) ReplaceAll(context.Context, []station.Station) error { return nil }

type fakeOutbox struct {
	messages []outbox.OutboxMessage
}

func (f *fakeOutbox) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	f.messages = append(f.messages, msg)

	return nil
}

func (f *fakeOutbox) GetPendingMessages(context.Context, int) ([]outbox.OutboxMessage, error) {
	return nil, nil
}

func (f *fakeOutbox) Delete(context.Context, int64) error { return nil }

func (f *fakeOutbox) UpdateRetry(context.Context, int64, int, string, time.Time) error { return nil }

type fakeFileStore struct {
	saved map[string]string
}

func (f *fakeFileStore) Save(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.saved[path] = string(data)

	return nil
}

func (f *fakeFileStore) SignPath(path string, _ time.Time) (string, error) {
	return "signed:" + path, nil
}

func newTestService(store *fakeStore, files *fakeFileStore, clock func() time.Time) *OrderService {
	s := MustNewOrderService()
	s.uowFactory = func() unitOfWork { return store }
	s.files = files
	if clock != nil {
		s.nowFunc = clock
	}

	return s
}

// stepClock returns the given instants one call at a time, holding the last.
func stepClock(times ...time.Time) func() time.Time {
	i := 0

	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}

		return t
	}
}

func seedOrder(store *fakeStore, number string) order.Order {
	o := order.Order{
		ID:          uuid.New(),
		Number:      number,
		PatientName: "Maria Souza",
		Status:      status.StatusPending,
	}
	store.orders[o.ID] = o

	return o
}

func eventKind(t *testing.T, msg outbox.OutboxMessage) outbox.OrderChangedEvent {
	t.Helper()

	var event outbox.OrderChangedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		t.Fatalf("failed to unmarshal outbox payload: %v", err)
	}

	return event
}

func TestSubmitOrderStartsPendingWithEmptyHistory(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, nil, stepClock(now))

	created, err := svc.SubmitOrder(context.Background(), order.Order{
		PatientName: "Maria Souza",
		DentistName: "Dr. Lima",
		Clinic:      "Clínica Sorriso",
		Teeth:       []string{"11", "12"},
		WorkType:    "coroa",
		Status:      status.StatusDelivered, // must be ignored
	})
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}

	if created.Status != status.StatusPending {
		t.Fatalf("expected new order to be pending, got %s", created.Status)
	}
	if created.Number == "" {
		t.Fatalf("expected a generated order number")
	}
	if !created.CreatedAt.Equal(now) {
		t.Fatalf("expected createdAt %v, got %v", now, created.CreatedAt)
	}
	if len(store.entries[created.ID]) != 0 {
		t.Fatalf("expected no history for a new order, got %d entries", len(store.entries[created.ID]))
	}

	if len(store.outbox.messages) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(store.outbox.messages))
	}
	event := eventKind(t, store.outbox.messages[0])
	if event.Kind != "created" || event.OrderNumber != created.Number {
		t.Fatalf("unexpected change event %+v", event)
	}
	if store.outbox.messages[0].ExchangeName != outbox.OrdersExchange {
		t.Fatalf("expected exchange %s, got %s", outbox.OrdersExchange, store.outbox.messages[0].ExchangeName)
	}

	if store.committed != 1 || store.rolledBack != 0 {
		t.Fatalf("expected one commit and no rollback, got %d/%d", store.committed, store.rolledBack)
	}
}

func TestChangeStatusRecordsHistoryChain(t *testing.T) {
	store := newFakeStore()
	ord := seedOrder(store, "LAB-2025-00001")
	actor := uuid.New()

	base := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, nil, stepClock(
		base.Add(5*time.Minute),  // 10:05
		base.Add(65*time.Minute), // 11:05
		base.Add(70*time.Minute), // 11:10
	))

	first, err := svc.ChangeStatus(context.Background(), ord.ID, status.StatusInProgress, actor)
	if err != nil {
		t.Fatalf("first ChangeStatus failed: %v", err)
	}
	if first.OldStatus != nil {
		t.Fatalf("expected nil old status on the first entry, got %s", *first.OldStatus)
	}
	if first.DurationSeconds != nil {
		t.Fatalf("expected nil duration on the first entry, got %d", *first.DurationSeconds)
	}
	if first.NewStatus != status.StatusInProgress || first.ChangedBy != actor {
		t.Fatalf("unexpected first entry %+v", first)
	}

	second, err := svc.ChangeStatus(context.Background(), ord.ID, status.StatusCompleted, actor)
	if err != nil {
		t.Fatalf("second ChangeStatus failed: %v", err)
	}
	if second.OldStatus == nil || *second.OldStatus != status.StatusInProgress {
		t.Fatalf("expected old status in-progress, got %v", second.OldStatus)
	}
	if second.DurationSeconds == nil || *second.DurationSeconds != 3600 {
		t.Fatalf("expected 3600s in the previous status, got %v", second.DurationSeconds)
	}

	third, err := svc.ChangeStatus(context.Background(), ord.ID, status.StatusDelivered, actor)
	if err != nil {
		t.Fatalf("third ChangeStatus failed: %v", err)
	}
	if third.DurationSeconds == nil || *third.DurationSeconds != 300 {
		t.Fatalf("expected 300s in the previous status, got %v", third.DurationSeconds)
	}

	if got := store.orders[ord.ID].Status; got != status.StatusDelivered {
		t.Fatalf("expected order to end delivered, got %s", got)
	}

	chain := store.entries[ord.ID]
	total := history.TotalProductionSeconds(chain)
	if total == nil || *total != 3600 {
		t.Fatalf("expected 3600s of production time, got %v", total)
	}
	if formatted := history.FormatDuration(total); formatted != "1h 0min" {
		t.Fatalf("expected 1h 0min, got %q", formatted)
	}

	last, err := svc.GetLastStatusChange(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("GetLastStatusChange failed: %v", err)
	}
	if last.NewStatus != status.StatusDelivered {
		t.Fatalf("expected the newest entry to be delivered, got %s", last.NewStatus)
	}

	for i, msg := range store.outbox.messages {
		event := eventKind(t, msg)
		if event.Kind != "status_changed" {
			t.Fatalf("expected status_changed event at %d, got %q", i, event.Kind)
		}
	}
}

func TestChangeStatusUnknownOrderRollsBack(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, nil)

	_, err := svc.ChangeStatus(context.Background(), uuid.New(), status.StatusCompleted, uuid.New())
	if !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if store.committed != 0 || store.rolledBack != 1 {
		t.Fatalf("expected rollback without commit, got %d/%d", store.committed, store.rolledBack)
	}
}

func TestGetLastStatusChangeWithoutHistory(t *testing.T) {
	store := newFakeStore()
	ord := seedOrder(store, "LAB-2025-00003")
	svc := newTestService(store, nil, nil)

	_, err := svc.GetLastStatusChange(context.Background(), ord.ID)
	if !errors.Is(err, history.ErrNoStatusHistory) {
		t.Fatalf("expected ErrNoStatusHistory, got %v", err)
	}
}

func TestChangeStatusRollsBackWhenHistoryAppendFails(t *testing.T) {
	store := newFakeStore()
	store.appendErr = errors.New("append failed")
	ord := seedOrder(store, "LAB-2025-00002")
	svc := newTestService(store, nil, nil)

	_, err := svc.ChangeStatus(context.Background(), ord.ID, status.StatusCompleted, uuid.New())
	if err == nil {
		t.Fatalf("expected an error when the history append fails")
	}
	if store.committed != 0 || store.rolledBack != 1 {
		t.Fatalf("expected rollback without commit, got %d/%d", store.committed, store.rolledBack)
	}
	if len(store.outbox.messages) != 0 {
		t.Fatalf("expected no outbox message after a failed append, got %d", len(store.outbox.messages))
	}
}

func TestUploadAttachmentStoresUnderOrderNumber(t *testing.T) {
	store := newFakeStore()
	files := &fakeFileStore{saved: make(map[string]string)}
	ord := seedOrder(store, "LAB-2025-00042")
	svc := newTestService(store, files, nil)

	path, err := svc.UploadAttachment(
		context.Background(),
		ord.ID,
		order.AttachmentPhoto,
		"FOTO.JPG",
		strings.NewReader("image-bytes"),
	)
	if err != nil {
		t.Fatalf("UploadAttachment failed: %v", err)
	}

	if path != "LAB-2025-00042/photo.jpg" {
		t.Fatalf("expected path namespaced by order number, got %q", path)
	}
	if files.saved[path] != "image-bytes" {
		t.Fatalf("expected file content stored at %q", path)
	}

	stored := store.orders[ord.ID]
	if stored.PhotoPath == nil || *stored.PhotoPath != path {
		t.Fatalf("expected photo path recorded on the order, got %v", stored.PhotoPath)
	}

	if len(store.outbox.messages) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(store.outbox.messages))
	}
	if event := eventKind(t, store.outbox.messages[0]); event.Kind != "attachment_added" {
		t.Fatalf("expected attachment_added event, got %q", event.Kind)
	}
}

func TestUploadAttachmentRejectsUnknownExtension(t *testing.T) {
	store := newFakeStore()
	files := &fakeFileStore{saved: make(map[string]string)}
	ord := seedOrder(store, "LAB-2025-00043")
	svc := newTestService(store, files, nil)

	_, err := svc.UploadAttachment(
		context.Background(),
		ord.ID,
		order.AttachmentScan,
		"model.exe",
		strings.NewReader("nope"),
	)
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	if len(files.saved) != 0 {
		t.Fatalf("expected nothing saved, got %d files", len(files.saved))
	}
	if store.begun != 0 {
		t.Fatalf("expected no transaction for a rejected upload, got %d", store.begun)
	}
}

func TestSignAttachmentURL(t *testing.T) {
	store := newFakeStore()
	files := &fakeFileStore{saved: make(map[string]string)}
	ord := seedOrder(store, "LAB-2025-00044")
	svc := newTestService(store, files, nil)

	_, err := svc.SignAttachmentURL(context.Background(), ord.ID, order.AttachmentScan)
	if !errors.Is(err, ErrAttachmentMissing) {
		t.Fatalf("expected ErrAttachmentMissing, got %v", err)
	}

	scanPath := "LAB-2025-00044/scan.stl"
	o := store.orders[ord.ID]
	o.ScanFilePath = &scanPath
	store.orders[ord.ID] = o

	url, err := svc.SignAttachmentURL(context.Background(), ord.ID, order.AttachmentScan)
	if err != nil {
		t.Fatalf("SignAttachmentURL failed: %v", err)
	}
	if url != "signed:"+scanPath {
		t.Fatalf("expected signed url for %q, got %q", scanPath, url)
	}
}
