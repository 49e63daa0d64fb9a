package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/poser/internal/ir"
	"github.com/roach88/poser/internal/queryir"
)

func TestAppendSession_ListNewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := s.AppendSession(ctx, createTestRecord(i)); err != nil {
			t.Fatalf("AppendSession(%d) failed: %v", i, err)
		}
	}

	records, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	want := createTestRecord(3)
	got := records[0]
	if got.ID != want.ID || !got.Timestamp.Equal(want.Timestamp) || got.TensionSec != want.TensionSec ||
		got.TotalSec != want.TotalSec || got.Reason != want.Reason || got.Routine != want.Routine {
		t.Errorf("records[0] = %+v, want %+v", got, want)
	}
	if records[2].ID != "s-001" {
		t.Errorf("oldest record = %q, want s-001", records[2].ID)
	}
}

func TestListSessions_Limit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.AppendSession(ctx, createTestRecord(i)); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "s-005" || records[1].ID != "s-004" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestListSessions_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ListSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if records == nil {
		t.Error("ListSessions() returned nil, want empty slice")
	}
}

func TestAppendSession_EvictsBeyondCap(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= ir.HistoryCap+1; i++ {
		if err := s.AppendSession(ctx, createTestRecord(i)); err != nil {
			t.Fatalf("AppendSession(%d) failed: %v", i, err)
		}
	}

	n, err := s.CountSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != ir.HistoryCap {
		t.Errorf("CountSessions() = %d, want %d", n, ir.HistoryCap)
	}

	records, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].ID != "s-201" {
		t.Errorf("newest = %q, want s-201", records[0].ID)
	}
	if last := records[len(records)-1].ID; last != "s-002" {
		t.Errorf("oldest = %q, want s-002 (s-001 evicted)", last)
	}
}

func TestAppendSession_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord(1)
	for i := 0; i < 2; i++ {
		if err := s.AppendSession(ctx, rec); err != nil {
			t.Fatalf("AppendSession() attempt %d failed: %v", i, err)
		}
	}

	n, err := s.CountSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountSessions() = %d, want 1", n)
	}
}

func TestClearSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.AppendSession(ctx, createTestRecord(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearSessions(ctx); err != nil {
		t.Fatalf("ClearSessions() failed: %v", err)
	}

	n, err := s.CountSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("CountSessions() = %d after clear, want 0", n)
	}
}

func TestQuerySessions_Filter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		rec := createTestRecord(i)
		if i%2 == 0 {
			rec.Reason = ir.ReasonStopped
			rec.Routine = "Tiny"
		}
		if err := s.AppendSession(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.QuerySessions(ctx, queryir.Query{
		Filter: queryir.All(
			queryir.Equals{Field: queryir.FieldReason, Value: string(ir.ReasonStopped)},
			queryir.AtLeast{Field: queryir.FieldTension, Value: 3},
		),
	})
	if err != nil {
		t.Fatalf("QuerySessions() failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "s-006" || records[1].ID != "s-004" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestQuerySessions_TimeWindow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.AppendSession(ctx, createTestRecord(i)); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.QuerySessions(ctx, queryir.Query{
		Filter: queryir.All(
			queryir.Since{Time: testEpoch.Add(2 * time.Minute)},
			queryir.Before{Time: testEpoch.Add(4 * time.Minute)},
		),
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("QuerySessions() failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "s-003" || records[1].ID != "s-002" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestQuerySessions_Invalid(t *testing.T) {
	s := createTestStore(t)

	_, err := s.QuerySessions(context.Background(), queryir.Query{
		Filter: queryir.Equals{Field: "mood", Value: "good"},
	})
	if !errors.Is(err, queryir.ErrInvalidQuery) {
		t.Errorf("QuerySessions() error = %v, want ErrInvalidQuery", err)
	}
}
