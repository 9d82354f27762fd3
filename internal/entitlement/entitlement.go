package entitlement

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"mac-card-bot/types"
)

// GateDecision is the outcome of the entry gate a profile passes through
// before a new card reading may start.
type GateDecision int

const (
	GateAllowed GateDecision = iota
	GateBlocked
	GateQuotaFreeExhausted
	GateQuotaPaidExhausted
)

// Service answers plan and quota questions for profiles.
type Service struct {
	profiles types.ProfileStore
	plans    types.PlanStore
	sessions types.SessionLedger

	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewService(profiles types.ProfileStore, plans types.PlanStore, sessions types.SessionLedger) *Service {
	return &Service{
		profiles: profiles,
		plans:    plans,
		sessions: sessions,
		Now:      time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// currentPlan resolves the plan the profile is entitled to right now.
// An expired or missing subscription resolves to nil.
func (s *Service) currentPlan(p *types.Profile) (*types.Plan, error) {
	if !p.IsEntitled(s.now()) {
		return nil, nil
	}
	plan, err := s.plans.GetPlan(*p.PlanCode)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return plan, nil
}

// DailyQuota returns how many sessions the profile may start per day.
// Profiles without a usable plan fall back to a single session.
func (s *Service) DailyQuota(p *types.Profile) (int, error) {
	plan, err := s.currentPlan(p)
	if err != nil {
		return 0, err
	}
	if plan == nil || plan.DailySessionsLimit <= 0 {
		return 1, nil
	}
	return plan.DailySessionsLimit, nil
}

// SessionsToday counts attempts started since local midnight.
func (s *Service) SessionsToday(telegramID int64) (int, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.sessions.DailySessionCount(telegramID, midnight, now)
}

// AvailableCardLimit returns the deck cap for the profile. Zero means the
// whole deck is available.
func (s *Service) AvailableCardLimit(p *types.Profile) (int, error) {
	plan, err := s.currentPlan(p)
	if err != nil {
		return 0, err
	}
	if plan == nil || plan.CardsLimit == nil {
		return 0, nil
	}
	return *plan.CardsLimit, nil
}

// EntryGate decides whether a new reading may start. Staff profiles bypass
// the quota. The returned limit is the daily quota used in quota messages.
func (s *Service) EntryGate(p *types.Profile) (GateDecision, int, error) {
	if p.IsBlocked {
		return GateBlocked, 0, nil
	}

	quota, err := s.DailyQuota(p)
	if err != nil {
		return GateBlocked, 0, err
	}

	if p.IsStaff {
		return GateAllowed, quota, nil
	}

	used, err := s.SessionsToday(p.TelegramID)
	if err != nil {
		return GateBlocked, 0, err
	}
	if used < quota {
		return GateAllowed, quota, nil
	}

	plan, err := s.currentPlan(p)
	if err != nil {
		return GateBlocked, 0, err
	}
	// the upsell copy is only for profiles sitting on the free plan
	if plan != nil && plan.Code == types.FreePlanCode {
		return GateQuotaFreeExhausted, quota, nil
	}
	return GateQuotaPaidExhausted, quota, nil
}

// Activate puts the profile on the given plan. The free plan never expires;
// paid plans run for the plan's duration from now.
func (s *Service) Activate(telegramID int64, planCode string) (*time.Time, error) {
	plan, err := s.plans.GetPlan(planCode)
	if err != nil {
		return nil, err
	}

	var expiry *time.Time
	if plan.Code != types.FreePlanCode {
		t := s.now().AddDate(0, 0, plan.DurationDays)
		expiry = &t
	}

	if err := s.profiles.SetPlan(telegramID, plan.Code, expiry); err != nil {
		return nil, err
	}

	log.Info().
		Int64("telegram_id", telegramID).
		Str("plan", plan.Code).
		Msg("plan activated")
	return expiry, nil
}
