package plans

import (
	"testing"

	"mac-card-bot/types"
)

type fakePlanStore struct {
	existing map[string]types.Plan
}

func (f *fakePlanStore) CreatePlan(p types.Plan) (bool, error) {
	if _, ok := f.existing[p.Code]; ok {
		return false, nil
	}
	f.existing[p.Code] = p
	return true, nil
}

func (f *fakePlanStore) GetPlan(code string) (*types.Plan, error) {
	p, ok := f.existing[code]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &p, nil
}

func (f *fakePlanStore) ListPlans() ([]types.Plan, error) { return nil, nil }

func TestEnsureIsIdempotent(t *testing.T) {
	store := &fakePlanStore{existing: map[string]types.Plan{}}

	created, skipped, err := Ensure(store)
	if err != nil {
		t.Fatal(err)
	}
	if created != 3 || skipped != 0 {
		t.Fatalf("first run: created=%d skipped=%d", created, skipped)
	}

	created, skipped, err = Ensure(store)
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 || skipped != 3 {
		t.Fatalf("second run: created=%d skipped=%d", created, skipped)
	}
}

func TestDefaultCatalogShape(t *testing.T) {
	catalog := DefaultCatalog()

	byCode := map[string]types.Plan{}
	for _, p := range catalog {
		byCode[p.Code] = p
	}

	free, ok := byCode[types.FreePlanCode]
	if !ok {
		t.Fatal("catalog missing the free plan")
	}
	if free.Price != 0 || free.DailySessionsLimit != 1 {
		t.Fatalf("free plan misconfigured: %+v", free)
	}
	if free.CardsLimit == nil || *free.CardsLimit != 10 {
		t.Fatalf("free plan cards limit: %v", free.CardsLimit)
	}

	monthly := byCode["monthly"]
	if monthly.Price != 300 || monthly.DurationDays != 30 || monthly.DailySessionsLimit != 3 {
		t.Fatalf("monthly plan misconfigured: %+v", monthly)
	}
	if monthly.CardsLimit != nil {
		t.Fatal("monthly plan must not cap the deck")
	}

	yearly := byCode["yearly"]
	if yearly.Price != 3000 || yearly.DurationDays != 365 {
		t.Fatalf("yearly plan misconfigured: %+v", yearly)
	}
}
