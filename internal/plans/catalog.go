// Package plans seeds the subscription catalog.
package plans

import (
	"github.com/rs/zerolog/log"

	"mac-card-bot/types"
)

func intPtr(v int) *int { return &v }

// DefaultCatalog returns the plans the bot ships with. The free plan caps
// the deck at the first ten cards and allows one session a day.
func DefaultCatalog() []types.Plan {
	return []types.Plan{
		{
			Code:               types.FreePlanCode,
			Name:               "Бесплатный",
			Price:              0,
			DurationDays:       999999,
			DailySessionsLimit: 1,
			CardsLimit:         intPtr(10),
			IsActive:           true,
			Description:        "1 сессия в день, 10 карт",
		},
		{
			Code:               "monthly",
			Name:               "Месячная премиум",
			Price:              300,
			DurationDays:       30,
			DailySessionsLimit: 3,
			IsActive:           true,
			Description:        "3 сессии в день, полная колода",
		},
		{
			Code:               "yearly",
			Name:               "Годовая премиум",
			Price:              3000,
			DurationDays:       365,
			DailySessionsLimit: 3,
			IsActive:           true,
			Description:        "3 сессии в день, полная колода",
		},
	}
}

// Ensure creates any catalog plans missing from the store. Existing plans
// are left untouched so price edits made in the database survive restarts.
func Ensure(store types.PlanStore) (created, skipped int, err error) {
	for _, plan := range DefaultCatalog() {
		ok, err := store.CreatePlan(plan)
		if err != nil {
			return created, skipped, err
		}
		if ok {
			log.Info().Str("plan", plan.Code).Msg("plan created")
			created++
		} else {
			skipped++
		}
	}
	return created, skipped, nil
}
