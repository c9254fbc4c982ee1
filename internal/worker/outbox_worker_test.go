package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	calls []string
	sent  chan string
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, n models.Notification) (*models.DispatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, userID+":"+n.Body)
	f.mu.Unlock()
	if f.sent != nil {
		f.sent <- userID
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.DispatchResult{Success: true}, nil
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTicker struct {
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped = true }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	db, err := gorm.Open(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repositories.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func setup(t *testing.T, n *fakeNotifier) (*OutboxWorker, repositories.OutboxRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	outbox := repositories.NewPostgresOutboxRepository(db)
	w := NewOutboxWorker(outbox, n, Config{BatchSize: 10, MaxAttempts: 3}, nil)
	return w, outbox, db
}

func insertRaw(t *testing.T, db *gorm.DB, eventType models.EventType, payload string) string {
	t.Helper()
	entry := models.NotificationOutboxEntry{EventType: eventType, Payload: payload}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("insert outbox row: %v", err)
	}
	return entry.ID
}

func mustGet(t *testing.T, outbox repositories.OutboxRepository, id string) *models.NotificationOutboxEntry {
	t.Helper()
	e, err := outbox.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return e
}

func TestTick_DeliversAndMarksSent(t *testing.T) {
	n := &fakeNotifier{}
	w, outbox, _ := setup(t, n)
	ctx := context.Background()

	id, err := outbox.Enqueue(ctx, models.PushMessageEvent{TargetUserID: "u1", Body: "hello"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	processed, err := w.Tick(ctx)
	if err != nil || processed != 1 {
		t.Fatalf("Tick = %d, %v", processed, err)
	}
	if n.callCount() != 1 || n.calls[0] != "u1:hello" {
		t.Fatalf("unexpected notifier calls: %v", n.calls)
	}
	if e := mustGet(t, outbox, id); e.Status != models.OutboxStatusSent || e.AttemptCount != 0 {
		t.Fatalf("unexpected row: %+v", e)
	}

	// Sent rows are never picked up again.
	if processed, _ := w.Tick(ctx); processed != 0 {
		t.Fatalf("sent row reprocessed")
	}
}

func TestTick_RetryCap(t *testing.T) {
	n := &fakeNotifier{err: fmt.Errorf("%w: connection refused", models.ErrStorageUnavailable)}
	w, outbox, db := setup(t, n)
	ctx := context.Background()

	id := insertRaw(t, db, models.EventTypePushMessage, `{"targetUserId":"u1","body":"hi"}`)

	for i := 1; i <= 3; i++ {
		if processed, err := w.Tick(ctx); err != nil || processed != 1 {
			t.Fatalf("tick %d: processed=%d err=%v", i, processed, err)
		}
		e := mustGet(t, outbox, id)
		if e.Status != models.OutboxStatusFailed || e.AttemptCount != i {
			t.Fatalf("tick %d: unexpected row %+v", i, e)
		}
		if e.LastError == nil || !strings.Contains(*e.LastError, "connection refused") {
			t.Fatalf("tick %d: last error not recorded: %v", i, e.LastError)
		}
	}

	for i := 0; i < 5; i++ {
		if processed, _ := w.Tick(ctx); processed != 0 {
			t.Fatalf("row selected after reaching the attempt cap")
		}
	}
	if e := mustGet(t, outbox, id); e.AttemptCount != 3 {
		t.Fatalf("attempt count = %d, want 3", e.AttemptCount)
	}
	if n.callCount() != 3 {
		t.Fatalf("notifier called %d times, want 3", n.callCount())
	}
	if count, err := w.DeadLettered(ctx); err != nil || count != 1 {
		t.Fatalf("DeadLettered = %d, %v", count, err)
	}
}

func TestTick_MissingBodyIsNoOp(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing body", payload: `{"targetUserId":"u1"}`},
		{name: "missing target", payload: `{"body":"hi"}`},
		{name: "empty object", payload: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			w, outbox, db := setup(t, n)

			id := insertRaw(t, db, models.EventTypePushMessage, tt.payload)
			if _, err := w.Tick(context.Background()); err != nil {
				t.Fatalf("Tick: %v", err)
			}
			if n.callCount() != 0 {
				t.Fatalf("transport called for unroutable payload")
			}
			if e := mustGet(t, outbox, id); e.Status != models.OutboxStatusSent {
				t.Fatalf("status = %s, want sent", e.Status)
			}
		})
	}
}

func TestTick_BadRowsFailWithoutStoppingBatch(t *testing.T) {
	n := &fakeNotifier{}
	w, outbox, db := setup(t, n)

	malformed := insertRaw(t, db, models.EventTypePushMessage, `{not json`)
	unknown := insertRaw(t, db, models.EventType("sms_message"), `{"to":"+1"}`)
	good := insertRaw(t, db, models.EventTypePushMessage, `{"targetUserId":"u2","body":"ok"}`)

	processed, err := w.Tick(context.Background())
	if err != nil || processed != 3 {
		t.Fatalf("Tick = %d, %v", processed, err)
	}

	for id, want := range map[string]error{malformed: models.ErrMalformedPayload, unknown: models.ErrUnknownEventType} {
		e := mustGet(t, outbox, id)
		if e.Status != models.OutboxStatusFailed || e.AttemptCount != 1 || e.LastError == nil {
			t.Fatalf("unexpected row %+v", e)
		}
		if !strings.Contains(*e.LastError, want.Error()) {
			t.Fatalf("last error %q does not mention %q", *e.LastError, want)
		}
	}
	if e := mustGet(t, outbox, good); e.Status != models.OutboxStatusSent {
		t.Fatalf("good row status = %s", e.Status)
	}
}

func TestTick_RespectsBatchSize(t *testing.T) {
	n := &fakeNotifier{}
	db := newTestDB(t)
	outbox := repositories.NewPostgresOutboxRepository(db)
	w := NewOutboxWorker(outbox, n, Config{BatchSize: 2}, nil)

	for i := 0; i < 5; i++ {
		insertRaw(t, db, models.EventTypePushMessage, fmt.Sprintf(`{"targetUserId":"u%d","body":"b"}`, i))
	}
	for _, want := range []int{2, 2, 1, 0} {
		if got, _ := w.Tick(context.Background()); got != want {
			t.Fatalf("processed %d, want %d", got, want)
		}
	}
}

func TestTick_FetchError(t *testing.T) {
	n := &fakeNotifier{}
	w, _, db := setup(t, n)
	sqlDB, _ := db.DB()
	sqlDB.Close()

	if _, err := w.Tick(context.Background()); !errors.Is(err, models.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	n := &fakeNotifier{sent: make(chan string, 1)}
	w, outbox, _ := setup(t, n)
	ticker := &fakeTicker{ch: make(chan time.Time)}
	var interval time.Duration
	w.newTicker = func(d time.Duration) Ticker {
		interval = d
		return ticker
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if _, err := outbox.Enqueue(context.Background(), models.PushMessageEvent{TargetUserID: "u1", Body: "tick"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	ticker.ch <- time.Now()

	select {
	case got := <-n.sent:
		if got != "u1" {
			t.Fatalf("notified %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not dispatch the pending row")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if !ticker.stopped {
		t.Fatal("ticker not stopped")
	}
	if interval != 5*time.Second {
		t.Fatalf("default interval = %s", interval)
	}
}
