package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// setupTestRepo creates an in-memory DB and returns the run repository.
// The DB is closed when the test completes.
func setupTestRepo(t *testing.T) *RunRepository {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { _ = db.Close() })
	return db.Runs()
}

func sampleRun() *Run {
	return &Run{
		ScopeID:    "scope-1",
		Scenario:   "smoke",
		Name:       "pkg.child",
		Root:       "pkg",
		Cached:     false,
		Outcome:    OutcomeOK,
		DurationMs: 1.25,
	}
}

// === Unit Tests: Record ===

func TestRunRepository_Record(t *testing.T) {
	repo := setupTestRepo(t)

	run := sampleRun()
	require.Equal(t, int64(0), run.ID)

	err := repo.Record(run)
	require.NoError(t, err)
	require.Greater(t, run.ID, int64(0), "Record should assign an ID")
	require.False(t, run.CreatedAt.IsZero(), "Record should stamp CreatedAt")

	runs, err := repo.List(RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	found := runs[0]
	require.Equal(t, run.ID, found.ID)
	require.Equal(t, "scope-1", found.ScopeID)
	require.Equal(t, "smoke", found.Scenario)
	require.Equal(t, "pkg.child", found.Name)
	require.Equal(t, "pkg", found.Root)
	require.False(t, found.Cached)
	require.Equal(t, OutcomeOK, found.Outcome)
	require.Empty(t, found.Error)
	require.InDelta(t, 1.25, found.DurationMs, 0.001)
	require.WithinDuration(t, run.CreatedAt, found.CreatedAt, time.Second)
}

func TestRunRepository_Record_FailedOutcome(t *testing.T) {
	repo := setupTestRepo(t)

	run := sampleRun()
	run.Outcome = OutcomeFailed
	run.Error = "provider \"pkg.child\": boom"
	require.NoError(t, repo.Record(run))

	runs, err := repo.List(RunFilter{})
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, runs[0].Outcome)
	require.Equal(t, run.Error, runs[0].Error)
}

// === Unit Tests: List ===

func TestRunRepository_List_NewestFirst(t *testing.T) {
	repo := setupTestRepo(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := sampleRun()
		run.ScopeID = "scope-" + string(rune('a'+i))
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Record(run))
	}

	runs, err := repo.List(RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, "scope-c", runs[0].ScopeID)
	require.Equal(t, "scope-a", runs[2].ScopeID)
}

func TestRunRepository_List_FilterByName(t *testing.T) {
	repo := setupTestRepo(t)

	a := sampleRun()
	a.Name = "pkg.a"
	b := sampleRun()
	b.Name = "pkg.b"
	require.NoError(t, repo.Record(a))
	require.NoError(t, repo.Record(b))

	runs, err := repo.List(RunFilter{Name: "pkg.a"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "pkg.a", runs[0].Name)
}

func TestRunRepository_List_FilterByScenario(t *testing.T) {
	repo := setupTestRepo(t)

	a := sampleRun()
	a.Scenario = "smoke"
	b := sampleRun()
	b.Scenario = "stress"
	require.NoError(t, repo.Record(a))
	require.NoError(t, repo.Record(b))

	runs, err := repo.List(RunFilter{Scenario: "stress"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "stress", runs[0].Scenario)
}

func TestRunRepository_List_Limit(t *testing.T) {
	repo := setupTestRepo(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(sampleRun()))
	}

	runs, err := repo.List(RunFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestRunRepository_List_Empty(t *testing.T) {
	repo := setupTestRepo(t)

	runs, err := repo.List(RunFilter{})
	require.NoError(t, err)
	require.Empty(t, runs)
}

// === Unit Tests: DeleteAll ===

func TestRunRepository_DeleteAll(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Record(sampleRun()))
	require.NoError(t, repo.DeleteAll())

	runs, err := repo.List(RunFilter{})
	require.NoError(t, err)
	require.Empty(t, runs)
}

// === Unit Tests: DB ===

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Runs().Record(sampleRun()))
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Runs().Record(sampleRun()))
	require.NoError(t, db.Close())

	// Schema application is idempotent and data survives reopen.
	db, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runs, err := db.Runs().List(RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

// TestRunRepository_FilterIsolation_Property verifies that name and scenario
// filters never leak rows from other names or scenarios.
func TestRunRepository_FilterIsolation_Property(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		repo := setupTestRepo(t)

		names := rapid.SliceOfNDistinct(
			rapid.StringMatching(`pkg\.[a-z]{2,6}`), 2, 4, rapid.ID[string],
		).Draw(r, "names")
		scenarios := rapid.SliceOfNDistinct(
			rapid.StringMatching(`scen-[a-z]{2,6}`), 2, 4, rapid.ID[string],
		).Draw(r, "scenarios")

		count := rapid.IntRange(1, 20).Draw(r, "count")
		for i := 0; i < count; i++ {
			run := sampleRun()
			run.Name = rapid.SampledFrom(names).Draw(r, "name")
			run.Scenario = rapid.SampledFrom(scenarios).Draw(r, "scenario")
			if err := repo.Record(run); err != nil {
				r.Fatalf("Record failed: %v", err)
			}
		}

		for _, name := range names {
			runs, err := repo.List(RunFilter{Name: name})
			if err != nil {
				r.Fatalf("List failed: %v", err)
			}
			for _, run := range runs {
				if run.Name != name {
					r.Fatalf("filter isolation violated: queried %q but got %q", name, run.Name)
				}
			}
		}
		for _, scen := range scenarios {
			runs, err := repo.List(RunFilter{Scenario: scen})
			if err != nil {
				r.Fatalf("List failed: %v", err)
			}
			for _, run := range runs {
				if run.Scenario != scen {
					r.Fatalf("filter isolation violated: queried %q but got %q", scen, run.Scenario)
				}
			}
		}
	})
}
