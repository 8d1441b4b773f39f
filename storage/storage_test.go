package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSession(t *testing.T, db *DB, id string, at time.Time) {
	t.Helper()
	err := db.StartSession(&Session{ID: id, Started: at, Platform: "linux", EffectMode: "log"})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	seedSession(t, db, "s1", start)
	if err := db.EndSession("s1", start.Add(time.Hour)); err != nil {
		t.Fatalf("end session: %v", err)
	}

	s, err := db.GetSession("s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !s.Started.Equal(start) || !s.Ended.Equal(start.Add(time.Hour)) {
		t.Fatalf("session times = %v..%v", s.Started, s.Ended)
	}

	if err := db.EndSession("missing", start); !errors.Is(err, ErrNotFound) {
		t.Fatalf("EndSession(missing) = %v, want ErrNotFound", err)
	}
	if _, err := db.GetSession("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession(missing) = %v, want ErrNotFound", err)
	}
}

func TestSaveAndListTransitions(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedSession(t, db, "s1", base)

	records := []*Transition{
		{SessionID: "s1", Timestamp: base, Kind: KindEngaged, Combination: "Ctrl+Shift", TriggerKey: "LeftShift"},
		{SessionID: "s1", Timestamp: base.Add(1500 * time.Millisecond), Kind: KindDisengaged, Combination: "Ctrl+Shift", TriggerKey: "LeftShift", HeldMs: 1500},
		{SessionID: "s1", Timestamp: base.Add(time.Minute), Kind: KindEngaged, Combination: "F1", TriggerKey: "F1"},
	}
	for _, r := range records {
		if err := db.SaveTransition(r); err != nil {
			t.Fatalf("save: %v", err)
		}
		if r.ID == 0 {
			t.Fatal("expected ID to be assigned")
		}
	}

	got, err := db.GetTransitions(2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	if got[0].Combination != "F1" || got[1].Kind != KindDisengaged {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[1].Timestamp.Equal(base.Add(1500 * time.Millisecond)) {
		t.Fatalf("timestamp = %v", got[1].Timestamp)
	}

	count, err := db.GetTransitionCount()
	if err != nil || count != 3 {
		t.Fatalf("count = %d, %v", count, err)
	}

	if err := db.DeleteTransition(records[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.DeleteTransition(records[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	seedSession(t, db, "a", day1)
	seedSession(t, db, "b", day2)

	save := func(session string, at time.Time, kind, combination string, held int64) {
		t.Helper()
		err := db.SaveTransition(&Transition{
			SessionID: session, Timestamp: at, Kind: kind,
			Combination: combination, TriggerKey: "x", HeldMs: held,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	save("a", day1, KindEngaged, "Ctrl", 0)
	save("a", day1.Add(time.Second), KindDisengaged, "Ctrl", 1000)
	save("a", day1.Add(time.Minute), KindEngaged, "Ctrl", 0)
	save("a", day1.Add(time.Minute+3*time.Second), KindDisengaged, "Ctrl", 3000)
	save("b", day2, KindEngaged, "F1", 0)
	save("b", day2.Add(500*time.Millisecond), KindDisengaged, "F1", 500)
	save("b", day2.Add(time.Hour), KindFeedLost, "F1", 0)

	overall, err := db.GetOverallStats(day1.Add(-time.Hour))
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if overall.Engagements != 3 || overall.FeedLosses != 1 || overall.Sessions != 2 {
		t.Fatalf("overall = %+v", overall)
	}
	if overall.TotalHeldMs != 4500 || overall.MaxHeldMs != 3000 || overall.AvgHeldMs != 1500 {
		t.Fatalf("overall held = %+v", overall)
	}

	daily, err := db.GetDailyStats(day1.Add(-time.Hour))
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(daily) != 2 || daily[0].Date != "2026-03-02" || daily[1].Engagements != 2 || daily[1].TotalHeldMs != 4000 {
		t.Fatalf("daily = %+v", daily)
	}

	combos, err := db.GetComboStats(day1.Add(-time.Hour))
	if err != nil {
		t.Fatalf("combos: %v", err)
	}
	if len(combos) != 2 || combos[0].Combination != "Ctrl" || combos[0].AvgHeldMs != 2000 {
		t.Fatalf("combos = %+v", combos)
	}

	recent, err := db.GetOverallStats(day2.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if recent.Engagements != 1 || recent.Sessions != 1 {
		t.Fatalf("recent = %+v", recent)
	}

	empty, err := db.GetOverallStats(day2.Add(48 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if empty.Engagements != 0 || empty.TotalHeldMs != 0 {
		t.Fatalf("empty = %+v", empty)
	}
}
