package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"llm_requests", "reports", "audit_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestSequence_SharedAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := Open(path)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := Open(path)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	seen := map[int64]bool{}
	var last int64
	for i := 0; i < 6; i++ {
		h := a
		if i%2 == 1 {
			h = b
		}
		n, err := h.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if seen[n] || n <= last {
			t.Fatalf("sequence %d after %d is not fresh", n, last)
		}
		seen[n] = true
		last = n
	}
}

func TestLLMEvents_AppendQueryGet(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i, purpose := range []string{"narrative-paei", "narrative-disc", "narrative-paei"} {
		err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
			Provider:     "anthropic",
			Model:        "claude-haiku-4-5-20251001",
			Purpose:      purpose,
			InputTokens:  100 * (i + 1),
			OutputTokens: 10,
			LatencyMs:    200,
			Success:      i != 1,
			RequestBody:  "[system]\nprompt",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	if all[0].InputTokens != 300 {
		t.Errorf("newest first: got input %d, want 300", all[0].InputTokens)
	}

	paei, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "narrative-paei", Limit: 1})
	if err != nil {
		t.Fatalf("query purpose: %v", err)
	}
	if len(paei) != 1 || paei[0].Purpose != "narrative-paei" {
		t.Errorf("purpose filter = %+v", paei)
	}

	e, err := repo.GetLLMEvent(ctx, all[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || e.Success || e.RequestBody != "[system]\nprompt" {
		t.Errorf("get = %+v", e)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("get missing = %v, %v", missing, err)
	}
}

func TestLLMUsageAggregates(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, m := range []string{"gpt-4o-mini", "gpt-4o-mini", "gemini-2.0-flash"} {
		if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
			Model: m, Provider: m, Purpose: "narrative-overall",
			InputTokens: 50, OutputTokens: 5, LatencyMs: 100, Success: true,
		}); err != nil {
			t.Fatal(err)
		}
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(byPurpose) != 1 || byPurpose[0].Calls != 3 || byPurpose[0].Failed != 0 || byPurpose[0].InputTokens != 150 {
		t.Errorf("by purpose = %+v", byPurpose)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(byModel) != 2 || byModel[1].Model != "gpt-4o-mini" || byModel[1].Calls != 2 {
		t.Errorf("by model = %+v", byModel)
	}
}

func TestReports_AppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.ReportRepo()
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	recs := []ReportRecord{
		{SessionID: "s1", UserID: "u1", Variant: "short", Filename: "a_short.pdf", Status: ReportUploaded, URL: "https://x", Timestamp: now},
		{SessionID: "s1", UserID: "u1", Variant: "full", Filename: "a_full.pdf", Status: ReportFailed, LocalPath: "/tmp/a_full.pdf", ErrorMessage: "quota", Timestamp: now},
		{SessionID: "s2", UserID: "u2", Variant: "short", Filename: "b_short.pdf", Status: ReportLocal, Timestamp: now},
	}
	for _, r := range recs {
		if err := repo.AppendReport(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	u1, err := repo.QueryReports(ctx, QueryOpts{UserID: "u1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(u1) != 2 {
		t.Fatalf("got %d reports for u1, want 2", len(u1))
	}
	if u1[0].Variant != "full" || u1[0].Status != ReportFailed || u1[0].ErrorMessage != "quota" {
		t.Errorf("newest u1 report = %+v", u1[0])
	}
	if u1[0].ID == "" {
		t.Error("expected generated id")
	}
	if u1[0].Sequence <= u1[1].Sequence {
		t.Errorf("sequence not increasing: %d <= %d", u1[0].Sequence, u1[1].Sequence)
	}

	future, err := repo.QueryReports(ctx, QueryOpts{From: now.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if len(future) != 0 {
		t.Errorf("time filter returned %d", len(future))
	}
}
