package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/snapseek/snapseek/internal/db"
	"github.com/snapseek/snapseek/internal/domain"
)

type mockStore struct {
	result *db.SearchResult
	err    error
	lastQ  *db.KNNQuery
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastQ = q
	return m.result, m.err
}

func entry(sku string, dist float64) db.SearchEntry {
	return db.SearchEntry{Key: "emb:" + sku, Score: dist, Fields: map[string]string{"sku": sku}}
}

func TestNearestSKUs_FiltersAndDedupes(t *testing.T) {
	store := &mockStore{result: &db.SearchResult{
		Total: 5,
		Entries: []db.SearchEntry{
			entry("SKU-1", 0.10),
			entry("SKU-2", 0.30),
			entry("SKU-1", 0.40), // duplicate
			{Key: "emb:x", Score: 0.20, Fields: map[string]string{"sku": ""}}, // empty sku
			entry("SKU-3", 0.90), // beyond cutoff
		},
	}}
	repo := New(store, "idx:embeddings")

	skus, err := repo.NearestSKUs(context.Background(), []float32{0.1, 0.2}, 0.65, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"SKU-1", "SKU-2"}
	if len(skus) != len(want) {
		t.Fatalf("want %v, got %v", want, skus)
	}
	for i := range want {
		if skus[i] != want[i] {
			t.Fatalf("want %v, got %v", want, skus)
		}
	}
	if store.lastQ.K != 10 || store.lastQ.IndexName != "idx:embeddings" {
		t.Fatalf("query not built from arguments: %+v", store.lastQ)
	}
}

func TestNearestSKUs_DistanceBoundaryInclusive(t *testing.T) {
	store := &mockStore{result: &db.SearchResult{
		Total:   1,
		Entries: []db.SearchEntry{entry("SKU-edge", 0.65)},
	}}
	repo := New(store, "idx")

	skus, err := repo.NearestSKUs(context.Background(), []float32{1}, 0.65, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skus) != 1 {
		t.Fatal("distance == cutoff must be retained")
	}
}

func TestNearestSKUs_EmptyResult(t *testing.T) {
	store := &mockStore{result: &db.SearchResult{}}
	repo := New(store, "idx")

	skus, err := repo.NearestSKUs(context.Background(), []float32{1}, 0.65, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skus) != 0 {
		t.Fatalf("want empty, got %v", skus)
	}
}

func TestNearestSKUs_StoreError(t *testing.T) {
	store := &mockStore{err: errors.New("connection reset")}
	repo := New(store, "idx")

	_, err := repo.NearestSKUs(context.Background(), []float32{1}, 0.65, 5)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable, got %v", err)
	}
}
