package store

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"mac-card-bot/types"
)

// SnapshotProfile is one profile row exported from a previous deployment.
// Timestamps are RFC 3339 strings; an unreadable one falls back to the
// import time rather than failing the row.
type SnapshotProfile struct {
	TelegramID            int64           `json:"telegram_id"`
	ChatID                int64           `json:"chat_id"`
	Username              string          `json:"username"`
	FirstName             string          `json:"first_name"`
	Locale                string          `json:"locale"`
	PlanCode              *string         `json:"plan_code"`
	SubscriptionExpiresAt *time.Time      `json:"subscription_expires_at"`
	CreatedAt             string          `json:"created_at"`
	LastRequestAt         string          `json:"last_request_at"`
	States                []SnapshotState `json:"states"`
}

// SnapshotState is one history entry: the state name and when the profile
// passed through it.
type SnapshotState struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type Snapshot struct {
	Profiles []SnapshotProfile `json:"profiles"`
}

// ImportSnapshot loads profiles from a JSON export and replays them through
// the regular store interfaces. Already existing profiles are updated in
// place, so the import is safe to re-run. Returns the number of imported
// profiles and the number of rows skipped on error.
func ImportSnapshot(path string, profiles types.ProfileStore, states types.StateLog) (imported, skipped int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return 0, 0, err
	}

	for _, sp := range snap.Profiles {
		if sp.TelegramID == 0 {
			skipped++
			continue
		}
		chatID := sp.ChatID
		if chatID == 0 {
			chatID = sp.TelegramID
		}
		p := types.Profile{
			TelegramID: sp.TelegramID,
			ChatID:     chatID,
			Username:   sp.Username,
			FirstName:  sp.FirstName,
			Locale:     sp.Locale,
		}
		if t, ok := parseSnapshotTime(sp.CreatedAt, sp.TelegramID, "created_at"); ok {
			p.CreatedAt = t
		}
		if t, ok := parseSnapshotTime(sp.LastRequestAt, sp.TelegramID, "last_request_at"); ok {
			p.LastRequestAt = &t
		}
		if err := profiles.UpsertProfile(p); err != nil {
			log.Warn().Err(err).Int64("telegram_id", sp.TelegramID).Msg("snapshot import: profile skipped")
			skipped++
			continue
		}
		if sp.PlanCode != nil {
			if err := profiles.SetPlan(sp.TelegramID, *sp.PlanCode, sp.SubscriptionExpiresAt); err != nil {
				log.Warn().Err(err).Int64("telegram_id", sp.TelegramID).Msg("snapshot import: plan not applied")
			}
		}
		for _, st := range sp.States {
			// a zero recordedAt lets the store stamp the import time
			recordedAt, _ := parseSnapshotTime(st.CreatedAt, sp.TelegramID, "state created_at")
			if err := states.AppendState(sp.TelegramID, st.Name, "", recordedAt); err != nil {
				log.Warn().Err(err).Int64("telegram_id", sp.TelegramID).Str("state", st.Name).Msg("snapshot import: state not recorded")
			}
		}
		imported++
	}
	return imported, skipped, nil
}

// parseSnapshotTime reads an RFC 3339 timestamp. Absent means no value,
// unreadable means "use the import time" so one bad field never loses the
// row.
func parseSnapshotTime(raw string, telegramID int64, field string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Warn().Err(err).Int64("telegram_id", telegramID).Str("field", field).Msg("snapshot import: unreadable timestamp, using now")
		return time.Now(), true
	}
	return t, true
}
