package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ofeng1/datathon/internal/clinical"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snap(fields map[string]float64) clinical.Snapshot {
	return clinical.Snapshot{Fields: fields}
}

func TestCreateSession(t *testing.T) {
	s := tempDB(t)
	id, err := s.CreateSession("")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}
	again, err := s.CreateSession(id)
	if err != nil || again != id {
		t.Fatalf("re-create: %q, %v", again, err)
	}

	if _, err := s.Load(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any commit, got %v", err)
	}
}

func TestCommitAndLoad(t *testing.T) {
	s := tempDB(t)
	id, _ := s.CreateSession("s1")

	first, err := s.Commit(id, snap(map[string]float64{"AGE": 72}))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if first.ParentID != "" {
		t.Fatalf("expected empty parent, got %s", first.ParentID)
	}
	second, err := s.Commit(id, clinical.Snapshot{
		Fields:         map[string]float64{"AGE": 72, "IMMEDR": 2},
		InferredTriage: true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if second.ParentID != first.VersionID {
		t.Fatalf("expected parent %s, got %s", first.VersionID, second.ParentID)
	}

	cur, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cur.VersionID != second.VersionID || cur.Snapshot.Fields["IMMEDR"] != 2 || !cur.Snapshot.InferredTriage {
		t.Fatalf("unexpected current %+v", cur)
	}
}

func TestCommitCreatesSession(t *testing.T) {
	s := tempDB(t)
	if _, err := s.Commit("implicit", snap(map[string]float64{"PULSE": 90})); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	sessions, err := s.ListSessions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != "implicit" || sessions[0].Versions != 1 {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
}

func TestRollback(t *testing.T) {
	s := tempDB(t)
	a, _ := s.Commit("a", snap(map[string]float64{"AGE": 40}))
	if _, err := s.Commit("a", snap(map[string]float64{"AGE": 41})); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Commit("b", snap(map[string]float64{"AGE": 50}))

	if err := s.Rollback("a", a.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	cur, _ := s.Load("a")
	if cur.VersionID != a.VersionID || cur.Snapshot.Fields["AGE"] != 40 {
		t.Fatalf("rollback did not restore: %+v", cur)
	}

	if err := s.Rollback("a", b.VersionID); err == nil {
		t.Error("rolling back to another session's version should fail")
	}
	if err := s.Rollback("a", "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListVersions(t *testing.T) {
	s := tempDB(t)
	var ids []string
	for i := 0; i < 5; i++ {
		rec, err := s.Commit("s", snap(map[string]float64{"PAINSCALE": float64(i)}))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.VersionID)
	}
	if _, err := s.Commit("other", snap(nil)); err != nil {
		t.Fatal(err)
	}

	versions, err := s.ListVersions("s", 3)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3, got %d", len(versions))
	}
	if versions[0].VersionID != ids[4] || versions[2].VersionID != ids[2] {
		t.Errorf("expected newest first, got %s..%s", versions[0].VersionID, versions[2].VersionID)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetVersion("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
