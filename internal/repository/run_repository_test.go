package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"t5index/internal/domain"

	"github.com/google/uuid"
)

func TestRecordRun(t *testing.T) {
	pool := &fakePool{}
	repo := NewRunRepository(pool, testTracer)

	run := domain.IndexRun{
		ID:         uuid.New(),
		Source:     "yahoo",
		Start:      day(1),
		End:        day(10),
		Points:     10,
		FirstValue: 1000,
		LastValue:  1042.5,
		Weights:    domain.DefaultWeights(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.RecordRun(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execs) != 1 {
		t.Fatalf("expected one insert, got %d", len(pool.execs))
	}

	args := pool.execs[0].args
	if args[0] != run.ID || args[1] != "yahoo" || args[4] != 10 {
		t.Fatalf("unexpected args: %v", args)
	}
	var weights domain.WeightTable
	if err := json.Unmarshal(args[7].([]byte), &weights); err != nil {
		t.Fatalf("weights not encoded as JSON: %v", err)
	}
	if weights["BTC"] != 0.5 {
		t.Fatalf("unexpected weights: %v", weights)
	}
}

func TestListRuns(t *testing.T) {
	id := uuid.New()
	created := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)
	pool := &fakePool{rows: [][]any{
		{id, "coingecko", day(1), day(10), 10, 1000.0, 987.25, []byte(`{"BTC":1}`), created},
	}}
	repo := NewRunRepository(pool, testTracer)

	runs, err := repo.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	if runs[0].ID != id || runs[0].LastValue != 987.25 || runs[0].Weights["BTC"] != 1 {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
	if pool.queries[0].args[0] != defaultRunLimit {
		t.Fatalf("expected default limit, got %v", pool.queries[0].args[0])
	}
}

func TestListRunsBadWeights(t *testing.T) {
	pool := &fakePool{rows: [][]any{
		{uuid.New(), "coingecko", day(1), day(10), 10, 1000.0, 990.0, []byte(`not json`), time.Now()},
	}}
	repo := NewRunRepository(pool, testTracer)

	if _, err := repo.ListRuns(context.Background(), 5); err == nil {
		t.Fatal("expected decode error")
	}
}
