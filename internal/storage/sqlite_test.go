package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codewithboateng/riskrule/internal/analyzer"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func sampleRun(modelID string, created time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		CreatedAt: created,
		ModelID:   modelID,
		ModelName: "High-Risk Open Banking Transactions",
		Source:    "models/high_risk.json",
		Valid:     true,
		Report: &analyzer.Report{
			ModelID:   modelID,
			ModelName: "High-Risk Open Banking Transactions",
			Summary: analyzer.Summary{
				TotalEvaluations: 3,
				EvaluationTypes:  map[string]int{"comparison": 2, "logical": 1},
				ComplexityScore:  4.85,
			},
			Warnings: []analyzer.Warning{
				{Severity: analyzer.SeverityMedium, Category: analyzer.CategoryComplexity, Message: "m", Context: "M501"},
			},
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTestDB(t)
	run := sampleRun("M501", time.Now().UTC())

	if err := db.SaveRun(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadRun(run.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ModelID != "M501" || !got.Valid {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Report == nil || got.Report.Summary.TotalEvaluations != 3 {
		t.Fatalf("report did not survive the round trip: %+v", got.Report)
	}
	if got.Report.Summary.ComplexityScore != 4.85 {
		t.Fatalf("score = %v, want 4.85", got.Report.Summary.ComplexityScore)
	}
}

func TestSaveRun_UpsertReplacesWarnings(t *testing.T) {
	db := openTestDB(t)
	run := sampleRun("M501", time.Now().UTC())
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("first save: %v", err)
	}
	run.Report.Warnings = nil
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var count int
	row := db.conn.QueryRow(`SELECT COUNT(*) FROM warnings WHERE run_id = ?`, run.ID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("warning rows = %d, want 0 after upsert", count)
	}
}

func TestListAndLatestRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Now().UTC().Add(-time.Hour)
	old := sampleRun("M501", base)
	mid := sampleRun("M777", base.Add(10*time.Minute))
	newest := sampleRun("M501", base.Add(20*time.Minute))
	for _, r := range []*Run{old, mid, newest} {
		if err := db.SaveRun(r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != newest.ID {
		t.Fatalf("unexpected list: %+v", runs)
	}

	latest, err := db.LatestRun("M501")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != newest.ID {
		t.Fatalf("latest M501 = %s, want %s", latest.ID, newest.ID)
	}
}

func TestUsersAndSessions(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateUser("analyst", "hash", "viewer")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, hash, err := db.GetUserByUsername("analyst")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.ID != id || hash != "hash" || u.Role != "viewer" {
		t.Fatalf("unexpected user: %+v hash=%q", u, hash)
	}

	if err := db.CreateSession(id, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	su, err := db.GetSession("tok")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if su.Username != "analyst" {
		t.Fatalf("session user = %q, want analyst", su.Username)
	}

	if err := db.DeleteSession("tok"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := db.GetSession("tok"); err == nil {
		t.Fatal("expected error for deleted session")
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateUser("analyst", "hash", "viewer")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.CreateSession(id, "tok", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := db.GetSession("tok"); err == nil {
		t.Fatal("expected error for expired session")
	}
}
