package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestlink/harvestlink-backend/api/middleware"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	"github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/pagination"
)

type stubOrders struct {
	mu         sync.Mutex
	filter     orders.ListFilter
	params     pagination.Params
	transition enums.OrderStatus
	err        error
	updates    [][]orders.OrderDTO
	cursors    []orders.UpdateCursor
}

func (s *stubOrders) Transition(_ context.Context, _ auth.Actor, id uuid.UUID, status enums.OrderStatus) (*orders.OrderDTO, error) {
	s.transition = status
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: id, Status: status}, nil
}

func (s *stubOrders) Claim(_ context.Context, actor auth.Actor, id uuid.UUID) (*orders.OrderDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: id, DistributorID: &actor.UserID}, nil
}

func (s *stubOrders) PlaceCropOrder(_ context.Context, _ auth.Actor, _ uuid.UUID, input orders.PlaceCropOrderInput) (*orders.OrderDetailDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDetailDTO{OrderDTO: orders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending}}, nil
}

func (s *stubOrders) List(_ context.Context, _ auth.Actor, filter orders.ListFilter, params pagination.Params) (pagination.Page[orders.OrderDTO], error) {
	s.filter, s.params = filter, params
	return pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{{ID: uuid.New()}}, NextCursor: "next"}, s.err
}

func (s *stubOrders) Detail(_ context.Context, _ auth.Actor, id uuid.UUID) (*orders.OrderDetailDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDetailDTO{OrderDTO: orders.OrderDTO{ID: id}}, nil
}

func (s *stubOrders) Tracking(_ context.Context, _ auth.Actor, id uuid.UUID) (*orders.TrackingDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.TrackingDTO{OrderID: id, OrderStatus: enums.OrderStatusProcessing}, nil
}

func (s *stubOrders) UpdatesSince(_ context.Context, _ auth.Actor, after orders.UpdateCursor, _ int) ([]orders.OrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = append(s.cursors, after)
	if len(s.updates) == 0 {
		return nil, nil
	}
	next := s.updates[0]
	s.updates = s.updates[1:]
	return next, nil
}

func withActor(req *http.Request, role enums.UserRole) *http.Request {
	actor := auth.Actor{UserID: uuid.New(), Username: "tester", Role: role}
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

func TestOrderListParsesFilters(t *testing.T) {
	svc := &stubOrders{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=processing&top_level=true&limit=10&cursor=abc", nil)
	rec := httptest.NewRecorder()

	OrderList(svc, nil).ServeHTTP(rec, withActor(req, enums.UserRoleDistributor))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.filter.Status)
	assert.Equal(t, enums.OrderStatusProcessing, *svc.filter.Status)
	assert.True(t, svc.filter.TopLevelOnly)
	assert.False(t, svc.filter.Unassigned)
	assert.Equal(t, 10, svc.params.Limit)
	assert.Equal(t, "abc", svc.params.Cursor)

	var body struct {
		Data pagination.Page[orders.OrderDTO] `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Data.Items, 1)
	assert.Equal(t, "next", body.Data.NextCursor)
}

func TestOrderListRejectsBadQuery(t *testing.T) {
	for _, query := range []string{"status=shipped", "limit=0", "limit=101", "unassigned=maybe"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?"+query, nil)
		rec := httptest.NewRecorder()
		OrderList(&stubOrders{}, nil).ServeHTTP(rec, withActor(req, enums.UserRoleRetailer))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestOrderListRequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	OrderList(&stubOrders{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderStatusTransition(t *testing.T) {
	svc := &stubOrders{}
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withParam(withActor(req, enums.UserRoleDistributor), "orderId", orderID.String())
	rec := httptest.NewRecorder()

	OrderStatus(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.OrderStatusCompleted, svc.transition)
}

func TestOrderStatusMapsStateConflictToBadRequest(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move from pending to completed")}
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withParam(withActor(req, enums.UserRoleDistributor), "orderId", orderID.String())
	rec := httptest.NewRecorder()

	OrderStatus(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), decodeError(t, rec))
}

func TestOrderDetailRejectsBadID(t *testing.T) {
	req := withParam(withActor(httptest.NewRequest(http.MethodGet, "/", nil), enums.UserRoleRetailer), "orderId", "nope")
	rec := httptest.NewRecorder()
	OrderDetail(&stubOrders{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderTrackingNotFound(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")}
	req := withParam(withActor(httptest.NewRequest(http.MethodGet, "/", nil), enums.UserRoleRetailer), "orderId", uuid.NewString())
	rec := httptest.NewRecorder()
	OrderTracking(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderClaimConflict(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeConflict, "order already assigned")}
	req := withParam(withActor(httptest.NewRequest(http.MethodPost, "/", nil), enums.UserRoleDistributor), "orderId", uuid.NewString())
	rec := httptest.NewRecorder()
	OrderClaim(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCropPlaceOrderCreated(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":3}`))
	req.Header.Set("Content-Type", "application/json")
	req = withParam(withActor(req, enums.UserRoleRetailer), "cropId", uuid.NewString())
	rec := httptest.NewRecorder()

	CropPlaceOrder(&stubOrders{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestOrderUpdatesStreamsEvents(t *testing.T) {
	changed := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	orderID := uuid.New()
	svc := &stubOrders{updates: [][]orders.OrderDTO{{
		{ID: orderID, Status: enums.OrderStatusProcessing, UpdatedAt: changed},
	}}}
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/updates?since="+since.Format(time.RFC3339), nil).WithContext(ctx)
	req = withActor(req, enums.UserRoleRetailer)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		OrderUpdates(svc, StreamOptions{Interval: 10 * time.Millisecond, MaxBatch: 5}, nil).ServeHTTP(rec, req)
		close(done)
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.cursors) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: order_update")
	assert.Contains(t, body, "id: "+changed.Format(time.RFC3339Nano)+"_"+orderID.String())
	assert.Contains(t, body, ": keep-alive")

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.True(t, svc.cursors[0].UpdatedAt.Equal(since))
	assert.Equal(t, uuid.Nil, svc.cursors[0].ID)
	assert.True(t, svc.cursors[1].UpdatedAt.Equal(changed))
	assert.Equal(t, orderID, svc.cursors[1].ID)
}

func TestOrderUpdatesAdvancesWithinSharedTimestamp(t *testing.T) {
	stamp := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	first, second, third := uuid.New(), uuid.New(), uuid.New()
	svc := &stubOrders{updates: [][]orders.OrderDTO{
		{{ID: first, UpdatedAt: stamp}, {ID: second, UpdatedAt: stamp}},
		{{ID: third, UpdatedAt: stamp}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/updates", nil).WithContext(ctx)
	req = withActor(req, enums.UserRoleRetailer)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		OrderUpdates(svc, StreamOptions{Interval: 10 * time.Millisecond, MaxBatch: 2}, nil).ServeHTTP(rec, req)
		close(done)
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.cursors) >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, orders.UpdateCursor{UpdatedAt: stamp, ID: second}, svc.cursors[1])
	assert.Equal(t, orders.UpdateCursor{UpdatedAt: stamp, ID: third}, svc.cursors[2])
	for _, id := range []uuid.UUID{first, second, third} {
		assert.Contains(t, rec.Body.String(), id.String())
	}
}

func TestOrderUpdatesResumesFromLastEventID(t *testing.T) {
	resume := time.Date(2026, 4, 2, 8, 30, 0, 123, time.UTC)
	lastID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/updates", nil)
	req.Header.Set("Last-Event-ID", resume.Format(time.RFC3339Nano)+"_"+lastID.String())

	cursor, err := streamCursor(req)
	require.NoError(t, err)
	assert.True(t, cursor.UpdatedAt.Equal(resume))
	assert.Equal(t, lastID, cursor.ID)

	req.Header.Set("Last-Event-ID", resume.Format(time.RFC3339Nano))
	cursor, err = streamCursor(req)
	require.NoError(t, err)
	assert.True(t, cursor.UpdatedAt.Equal(resume))
	assert.Equal(t, uuid.Nil, cursor.ID)

	req.Header.Set("Last-Event-ID", resume.Format(time.RFC3339Nano)+"_not-a-uuid")
	_, err = streamCursor(req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req.Header.Set("Last-Event-ID", "yesterday")
	_, err = streamCursor(req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
