package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/angelmondragon/inventory-service/pkg/config"
	"github.com/angelmondragon/inventory-service/pkg/db"
	"github.com/angelmondragon/inventory-service/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *db.Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    fmt.Sprintf("file:inventory_%s?mode=memory&cache=shared", uuid.NewString()),
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&models.StockRecord{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return client
}

type stubCatalog struct {
	mu         sync.Mutex
	available  map[int64]bool
	names      map[int64]string
	checkErr   error
	checkCalls int
	nameCalls  int
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{available: map[int64]bool{}, names: map[int64]string{}}
}

func (s *stubCatalog) withProduct(id int64, name string) *stubCatalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available[id] = true
	if name != "" {
		s.names[id] = name
	}
	return s
}

func (s *stubCatalog) CheckAvailability(_ context.Context, productID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkCalls++
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.available[productID], nil
}

func (s *stubCatalog) ResolveName(_ context.Context, productID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nameCalls++
	if name, ok := s.names[productID]; ok {
		return name
	}
	return "Unknown Product"
}

type stubRecorder struct {
	mu        sync.Mutex
	purchases map[string]int
	writes    map[string]int
}

func newStubRecorder() *stubRecorder {
	return &stubRecorder{purchases: map[string]int{}, writes: map[string]int{}}
}

func (s *stubRecorder) ObservePurchase(outcome string, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases[outcome]++
}

func (s *stubRecorder) ObserveStockWrite(operation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[operation]++
}

func newTestService(t *testing.T, catalog Catalog) (Service, *Repository, *stubRecorder) {
	t.Helper()
	client := openTestDB(t)
	repo := NewRepository(client.DB())
	rec := newStubRecorder()
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Tx:      client,
		Catalog: catalog,
		Metrics: rec,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, rec
}

// racingStore holds records in memory and lets a test run a competing
// purchase right before the conditional decrement executes.
type racingStore struct {
	mu              sync.Mutex
	records         map[int64]int
	beforeDecrement func(s *racingStore)
	decrements      int
	saves           int
}

func newRacingStore(productID int64, quantity int) *racingStore {
	return &racingStore{records: map[int64]int{productID: quantity}}
}

func (s *racingStore) quantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[productID]
}

func (s *racingStore) take(productID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[productID] -= qty
}

func (s *racingStore) FindByProductID(_ context.Context, productID int64) (*models.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.records[productID]
	if !ok {
		return nil, nil
	}
	return &models.StockRecord{ID: uint(productID), ProductID: productID, Quantity: qty}, nil
}

func (s *racingStore) FindAll(_ context.Context) ([]models.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StockRecord, 0, len(s.records))
	for id, qty := range s.records {
		out = append(out, models.StockRecord{ID: uint(id), ProductID: id, Quantity: qty})
	}
	return out, nil
}

func (s *racingStore) Save(_ context.Context, record *models.StockRecord) (*models.StockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.records[record.ProductID] = record.Quantity
	return record, nil
}

func (s *racingStore) DecrementIfAvailable(_ context.Context, productID int64, qty int) (bool, error) {
	if s.beforeDecrement != nil {
		s.beforeDecrement(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[productID] < qty {
		return false, nil
	}
	s.records[productID] -= qty
	s.decrements++
	return true, nil
}

func (s *racingStore) scoped(*gorm.DB) store {
	return s
}

type inlineTx struct{}

func (inlineTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
