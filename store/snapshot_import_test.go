package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mac-card-bot/types"
)

type memProfiles struct {
	upserts map[int64]types.Profile
	plans   map[int64]string
}

func newMemProfiles() *memProfiles {
	return &memProfiles{upserts: map[int64]types.Profile{}, plans: map[int64]string{}}
}

func (m *memProfiles) UpsertProfile(p types.Profile) error {
	m.upserts[p.TelegramID] = p
	return nil
}

func (m *memProfiles) GetProfile(telegramID int64) (*types.Profile, error) {
	p, ok := m.upserts[telegramID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) SetPlan(telegramID int64, planCode string, expiresAt *time.Time) error {
	if _, ok := m.upserts[telegramID]; !ok {
		return types.ErrNotFound
	}
	m.plans[telegramID] = planCode
	return nil
}

func (m *memProfiles) TouchLastRequest(telegramID int64) error { return nil }

type stateEntry struct {
	name string
	at   time.Time
}

type memStates struct {
	records map[int64][]stateEntry
}

func (m *memStates) AppendState(telegramID int64, stateName, description string, recordedAt time.Time) error {
	if m.records == nil {
		m.records = map[int64][]stateEntry{}
	}
	m.records[telegramID] = append(m.records[telegramID], stateEntry{name: stateName, at: recordedAt})
	return nil
}

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportSnapshot(t *testing.T) {
	path := writeSnapshot(t, `{
	  "profiles": [
	    {"telegram_id": 1, "chat_id": 1, "username": "alice", "plan_code": "monthly",
	     "subscription_expires_at": "2026-01-01T00:00:00Z",
	     "created_at": "2024-03-10T08:30:00Z", "last_request_at": "2025-02-01T12:00:00Z",
	     "states": [{"name": "terminal", "created_at": "2025-02-01T12:05:00Z"}]},
	    {"telegram_id": 2, "username": "bob", "states": [{"name": "reflect_1"}]},
	    {"telegram_id": 0, "username": "ghost"}
	  ]
	}`)

	profiles := newMemProfiles()
	states := &memStates{}

	imported, skipped, err := ImportSnapshot(path, profiles, states)
	if err != nil {
		t.Fatal(err)
	}
	if imported != 2 || skipped != 1 {
		t.Fatalf("imported=%d skipped=%d", imported, skipped)
	}

	if profiles.plans[1] != "monthly" {
		t.Fatalf("plan not applied: %v", profiles.plans)
	}
	if _, ok := profiles.plans[2]; ok {
		t.Fatal("profile without plan_code must not get a plan")
	}

	// a missing chat id falls back to the telegram id
	if profiles.upserts[2].ChatID != 2 {
		t.Fatalf("chat id fallback: %+v", profiles.upserts[2])
	}

	// exported timestamps survive the import
	alice := profiles.upserts[1]
	if want := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC); !alice.CreatedAt.Equal(want) {
		t.Fatalf("created_at = %v, want %v", alice.CreatedAt, want)
	}
	if alice.LastRequestAt == nil || !alice.LastRequestAt.Equal(time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("last_request_at = %v", alice.LastRequestAt)
	}

	got := states.records[1]
	if len(got) != 1 || got[0].name != "terminal" {
		t.Fatalf("states for profile 1: %v", got)
	}
	if want := time.Date(2025, 2, 1, 12, 5, 0, 0, time.UTC); !got[0].at.Equal(want) {
		t.Fatalf("state recorded at %v, want %v", got[0].at, want)
	}

	// an entry without a timestamp leaves stamping to the store
	bob := states.records[2]
	if len(bob) != 1 || bob[0].name != "reflect_1" || !bob[0].at.IsZero() {
		t.Fatalf("states for profile 2: %v", bob)
	}
	if profiles.upserts[2].LastRequestAt != nil {
		t.Fatalf("absent last_request_at must stay nil, got %v", profiles.upserts[2].LastRequestAt)
	}
}

func TestImportSnapshotUnreadableTimestamps(t *testing.T) {
	path := writeSnapshot(t, `{
	  "profiles": [
	    {"telegram_id": 7, "created_at": "10.03.2024 08:30", "last_request_at": "yesterday",
	     "states": [{"name": "terminal", "created_at": "not-a-date"}]}
	  ]
	}`)

	profiles := newMemProfiles()
	states := &memStates{}

	before := time.Now()
	imported, skipped, err := ImportSnapshot(path, profiles, states)
	after := time.Now()
	if err != nil {
		t.Fatal(err)
	}
	if imported != 1 || skipped != 0 {
		t.Fatalf("imported=%d skipped=%d, unreadable timestamps must not lose the row", imported, skipped)
	}

	p := profiles.upserts[7]
	if p.CreatedAt.Before(before) || p.CreatedAt.After(after) {
		t.Fatalf("created_at fallback = %v, want import time", p.CreatedAt)
	}
	if p.LastRequestAt == nil || p.LastRequestAt.Before(before) || p.LastRequestAt.After(after) {
		t.Fatalf("last_request_at fallback = %v, want import time", p.LastRequestAt)
	}

	got := states.records[7]
	if len(got) != 1 {
		t.Fatalf("states: %v", got)
	}
	if got[0].at.Before(before) || got[0].at.After(after) {
		t.Fatalf("state fallback recorded at %v, want import time", got[0].at)
	}
}

func TestImportSnapshotBadFile(t *testing.T) {
	profiles := newMemProfiles()
	states := &memStates{}

	if _, _, err := ImportSnapshot(filepath.Join(t.TempDir(), "missing.json"), profiles, states); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := writeSnapshot(t, "{not json")
	if _, _, err := ImportSnapshot(path, profiles, states); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
