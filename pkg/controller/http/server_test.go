package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	server "github.com/slotwise/calsync/pkg/controller/http"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/model"
	"github.com/slotwise/calsync/pkg/domain/types"
	"github.com/slotwise/calsync/pkg/repository/memory"
	"github.com/slotwise/calsync/pkg/service/worker"
	"github.com/slotwise/calsync/pkg/usecase"
)

type recordingAdapter struct {
	created int
}

func (a *recordingAdapter) CreateEvent(ctx context.Context, booking *model.Booking) (*model.CreatedEvent, error) {
	a.created++
	return &model.CreatedEvent{ExternalEventID: fmt.Sprintf("evt-%d", a.created)}, nil
}

func (a *recordingAdapter) UpdateEvent(ctx context.Context, mapping *model.EventMapping, booking *model.Booking) error {
	return nil
}

func (a *recordingAdapter) DeleteEvent(ctx context.Context, externalEventID string) error {
	return nil
}

func (a *recordingAdapter) ImportEvents(ctx context.Context, from, to time.Time) ([]*model.RemoteEvent, error) {
	return nil, nil
}

func (a *recordingAdapter) RefreshCredentials(ctx context.Context) (*model.Credentials, error) {
	return &model.Credentials{}, nil
}

type staticFactory struct {
	adapter interfaces.Adapter
}

func (f *staticFactory) Adapter(ctx context.Context, conn *model.Connection) (interfaces.Adapter, error) {
	return f.adapter, nil
}

type env struct {
	repo *memory.Memory
	uc   *usecase.UseCases
	srv  *server.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()

	repo := memory.New()
	uc := usecase.New(repo, &staticFactory{adapter: &recordingAdapter{}})

	queue := worker.NewQueue(worker.WithWorkers(1), worker.WithBaseDelay(time.Millisecond))
	gt.NoError(t, queue.Start(context.Background())).Required()
	t.Cleanup(queue.Stop)

	return &env{
		repo: repo,
		uc:   uc,
		srv:  server.New(uc, repo, queue),
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	gt.Number(t, rec.Code).Equal(200)
	gt.Value(t, rec.Header().Get("Content-Type")).Equal("application/json")
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	conn, err := e.repo.Connection().Put(ctx, &model.Connection{
		BusinessID: "biz-1",
		StaffID:    "staff-1",
		Provider:   types.ProviderGoogle,
		Active:     true,
	})
	gt.NoError(t, err).Required()

	for i, status := range []types.SyncStatus{types.SyncStatusSynced, types.SyncStatusFailed} {
		_, err := e.repo.Mapping().Upsert(ctx, &model.EventMapping{
			BusinessID:      "biz-1",
			ConnectionID:    conn.ID,
			BookingID:       types.BookingID(fmt.Sprintf("bk-%d", i)),
			ExternalEventID: fmt.Sprintf("evt-%d", i),
			Status:          status,
			Attempts:        1,
		})
		gt.NoError(t, err).Required()
	}

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/businesses/biz-1/stats", nil))

	gt.Number(t, rec.Code).Equal(200)

	var body struct {
		BusinessID    string  `json:"business_id"`
		TotalAttempts int     `json:"total_attempts"`
		Successful    int     `json:"successful"`
		Failed        int     `json:"failed"`
		SuccessRate   float64 `json:"success_rate"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Value(t, body.BusinessID).Equal("biz-1")
	gt.Number(t, body.TotalAttempts).Equal(2)
	gt.Number(t, body.Successful).Equal(1)
	gt.Number(t, body.Failed).Equal(1)
}

func TestRetryEndpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.repo.Connection().Put(ctx, &model.Connection{
		BusinessID: "biz-1",
		StaffID:    "staff-1",
		Provider:   types.ProviderGoogle,
		Active:     true,
	})
	gt.NoError(t, err).Required()

	booking, err := e.repo.Booking().Put(ctx, &model.Booking{
		BusinessID:  "biz-1",
		StaffID:     "staff-1",
		Title:       "Haircut",
		StartsAt:    time.Now().Add(time.Hour),
		EndsAt:      time.Now().Add(2 * time.Hour),
		EventStatus: types.EventStatusSyncFailed,
	})
	gt.NoError(t, err).Required()

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/businesses/biz-1/retry", nil))
	gt.Number(t, rec.Code).Equal(202)

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := e.repo.Booking().Get(ctx, booking.ID)
		gt.NoError(t, err).Required()
		if got.EventStatus == types.EventStatusSynced {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("booking never synced, status=%s", got.EventStatus)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRetryEndpointRejectsBadLimit(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/businesses/biz-1/retry?limit=nope", nil))
	gt.Number(t, rec.Code).Equal(400)
}

func TestImportEndpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.repo.Staff().Put(ctx, &model.Staff{ID: "staff-1", BusinessID: "biz-1", Name: "Alice"})
	gt.NoError(t, err).Required()

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/staff/staff-1/import", nil))
	gt.Number(t, rec.Code).Equal(202)

	var body map[string]string
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)).Required()
	gt.Value(t, body["queued"]).Equal("import_availability")
}
