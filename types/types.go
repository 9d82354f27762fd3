package types

import (
	"errors"
	"time"
)

const FreePlanCode = "free"

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type Profile struct {
	TelegramID            int64
	ChatID                int64
	Username              string
	FirstName             string
	Locale                string
	PlanCode              *string
	SubscriptionExpiresAt *time.Time
	IsBlocked             bool
	IsStaff               bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
	LastRequestAt         *time.Time
}

// IsEntitled reports whether the profile currently holds a usable plan:
// the free plan never expires, paid plans must have a nil expiry or an
// expiry strictly in the future.
func (p *Profile) IsEntitled(now time.Time) bool {
	if p.PlanCode == nil {
		return false
	}
	if *p.PlanCode == FreePlanCode {
		return true
	}
	if p.SubscriptionExpiresAt == nil {
		return true
	}
	return p.SubscriptionExpiresAt.After(now)
}

type Plan struct {
	Code               string
	Name               string
	Price              int64
	DurationDays       int
	DailySessionsLimit int
	CardsLimit         *int
	RecurringID        *string
	IsActive           bool
	Description        string
}

type Attempt struct {
	ID              int64
	TelegramID      int64
	RequestText     string
	RequestCategory string
	CardStyle       string
	CardNumber      int
	StartedAt       time.Time
	CompletedAt     *time.Time
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderSuccess   OrderStatus = "success"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

type PaymentOrder struct {
	OrderID        string
	TelegramID     int64
	PlanCode       *string
	Amount         int64
	Currency       string
	Status         OrderStatus
	PaymentID      string
	SubscriptionID string
	WebhookData    []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
}

type StateRecord struct {
	ID          int64
	TelegramID  int64
	StateName   string
	Description string
	CreatedAt   time.Time
}

type Statistics struct {
	TotalUsers        int
	RecentUsers       int
	CompletedSessions int
}

// ConvoData is the transient per-profile conversation context: the step the
// profile is parked at plus the free-text answers collected so far.
type ConvoData struct {
	Step    string            `json:"step"`
	Answers map[string]string `json:"answers,omitempty"`
}

type ProfileStore interface {
	UpsertProfile(p Profile) error
	GetProfile(telegramID int64) (*Profile, error)
	SetPlan(telegramID int64, planCode string, expiresAt *time.Time) error
	TouchLastRequest(telegramID int64) error
}

type PlanStore interface {
	CreatePlan(p Plan) (created bool, err error)
	GetPlan(code string) (*Plan, error)
	ListPlans() ([]Plan, error)
}

type SessionLedger interface {
	StartAttempt(telegramID int64, requestText, requestCategory, cardStyle string, cardNumber int) error
	CompleteLatestOpenAttempt(telegramID int64) (completed bool, err error)
	DailySessionCount(telegramID int64, from, to time.Time) (int, error)
}

type OrderStore interface {
	CreateOrder(o PaymentOrder) error
	GetOrder(orderID string) (*PaymentOrder, error)
	// MarkOrderSuccess transitions the order into success exactly once.
	// A repeated success delivery only refreshes the audit payload and
	// returns first=false.
	MarkOrderSuccess(orderID, paymentID, subscriptionID string, payload []byte) (first bool, err error)
	// UpdateOrderWebhook applies a non-success webhook status. An order that
	// already reached success keeps its status; only the audit payload is
	// refreshed.
	UpdateOrderWebhook(orderID string, status OrderStatus, paymentID, subscriptionID string, payload []byte) error
}

type StateLog interface {
	// AppendState records the profile passing through a named state. A zero
	// recordedAt stamps the record with the current time; imports pass the
	// historical timestamp instead.
	AppendState(telegramID int64, stateName, description string, recordedAt time.Time) error
}

type StatsStore interface {
	GetStatistics() (*Statistics, error)
}

type ConvoStore interface {
	GetConvo(telegramID int64) (*ConvoData, error)
	SetConvo(telegramID int64, data *ConvoData) error
	ClearConvo(telegramID int64) error
	// ActiveProfileIDs lists profiles with a live conversation context,
	// used by the staff broadcast.
	ActiveProfileIDs() ([]int64, error)
}
