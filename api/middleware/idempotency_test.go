package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/inventory-service/pkg/types"
)

const purchasesPath = "/inventory/purchases"

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	delete(f.ttls, key)
	return nil
}

func (f *fakeStore) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func purchaseRequest(body, key string) *http.Request {
	req := requestWithPattern(http.MethodPost, purchasesPath, purchasesPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func TestRouteCovered(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    bool
	}{
		{"purchase", http.MethodPost, purchasesPath, true},
		{"purchase trailing slash", http.MethodPost, purchasesPath + "/", true},
		{"create or update", http.MethodPost, "/inventory", false},
		{"read", http.MethodGet, "/inventory/{productId}", false},
		{"wrong method", http.MethodGet, purchasesPath, false},
	}

	for _, tt := range tests {
		if got := routeCovered(tt.method, tt.pattern); got != tt.want {
			t.Fatalf("%s: expected %v got %v", tt.name, tt.want, got)
		}
	}
}

func TestIdempotencyMiddlewarePassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, purchaseRequest(`{"productId":1,"quantity":1}`, ""))
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("handler executed %d times, expected 2", calls)
	}
	if store.size() != 0 {
		t.Fatalf("nothing should be stored without a key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"success":true}}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, purchaseRequest(`{"productId":1,"quantity":2}`, "abc"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, purchaseRequest(`{"productId":1,"quantity":2}`, "abc"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"success":true}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for _, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Fatalf("completed record should carry the configured ttl, got %v", ttl)
		}
	}
}

func TestIdempotencyMiddlewareScopesByAPIKey(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	first := purchaseRequest(`{"productId":1,"quantity":1}`, "shared")
	first.Header.Set(APIKeyHeader, "client-a")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := purchaseRequest(`{"productId":1,"quantity":1}`, "shared")
	second.Header.Set(APIKeyHeader, "client-b")
	mw(handler).ServeHTTP(httptest.NewRecorder(), second)

	if calls != 2 {
		t.Fatalf("distinct callers must not share records, handler ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), purchaseRequest(`{}`, "retry-me"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), purchaseRequest(`{}`, "retry-me"))

	if calls != 2 {
		t.Fatalf("5xx responses should be retried, handler ran %d times", calls)
	}
	if store.size() != 0 {
		t.Fatalf("reservation should be released after a 5xx")
	}
}

func TestIdempotencyMiddlewareReleasesKeyOnPanic(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	func() {
		defer func() { _ = recover() }()
		mw(handler).ServeHTTP(httptest.NewRecorder(), purchaseRequest(`{}`, "panics"))
	}()

	if store.size() != 0 {
		t.Fatalf("reservation should be released when the handler panics")
	}
}

func TestIdempotencyMiddlewareRunsConcurrentDuplicateOnce(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	})

	const workers = 2
	codes := make([]int, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			resp := httptest.NewRecorder()
			mw(handler).ServeHTTP(resp, purchaseRequest(`{"productId":1,"quantity":1}`, "same-key"))
			codes[idx] = resp.Code
		}(i)
	}
	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("purchase handler executed %d times for one Idempotency-Key", got)
	}
	for _, code := range codes {
		if code != http.StatusCreated && code != http.StatusConflict {
			t.Fatalf("duplicate must replay or conflict, got %v", codes)
		}
	}

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, purchaseRequest(`{"productId":1,"quantity":1}`, "same-key"))
	if replay.Code != http.StatusCreated || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay of the completed request, got %d", replay.Code)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("replay must not run the handler, ran %d times", got)
	}
}

func TestIdempotencyMiddlewareRejectsWhileInFlight(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-unblock
		w.WriteHeader(http.StatusCreated)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		mw(handler).ServeHTTP(httptest.NewRecorder(), purchaseRequest(`{"productId":1,"quantity":1}`, "slow"))
	}()
	<-entered

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, purchaseRequest(`{"productId":1,"quantity":1}`, "slow"))
	close(unblock)
	<-done

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if len(payload.Errors) != 1 || payload.Errors[0].Title != "Request In Progress" {
		t.Fatalf("unexpected error payload %+v", payload)
	}
	for _, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Fatalf("completed record should replace the reservation ttl, got %v", ttl)
		}
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, time.Hour, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), purchaseRequest(`{"productId":1,"quantity":1}`, "xyz"))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, purchaseRequest(`{"productId":1,"quantity":5}`, "xyz"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if len(payload.Errors) != 1 || payload.Errors[0].Title != "Idempotency Key Reused" {
		t.Fatalf("unexpected error payload %+v", payload)
	}
}
