package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"mac-card-bot/types"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

var ErrNotFound = types.ErrNotFound

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = buildPostgresDSNFromEnv()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildPostgresDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		db = "mac_card_bot"
	}
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		user = "mac_card_bot"
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *PostgresStore) UpsertProfile(p types.Profile) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	locale := strings.TrimSpace(p.Locale)
	if locale == "" {
		locale = "ru"
	}
	// imports carry historical timestamps; live updates leave both nil and
	// the row keeps its DB-side values
	var createdAt *time.Time
	if !p.CreatedAt.IsZero() {
		createdAt = &p.CreatedAt
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO profiles (telegram_id, chat_id, username, first_name, locale, created_at, last_request_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()), $7)
ON CONFLICT (telegram_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  username = EXCLUDED.username,
  first_name = EXCLUDED.first_name,
  last_request_at = COALESCE(EXCLUDED.last_request_at, profiles.last_request_at),
  updated_at = NOW();
`, p.TelegramID, p.ChatID, strings.TrimSpace(p.Username), strings.TrimSpace(p.FirstName), locale,
		createdAt, p.LastRequestAt)
	return err
}

func (s *PostgresStore) GetProfile(telegramID int64) (*types.Profile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var p types.Profile
	err := s.pool.QueryRow(ctx, `
SELECT telegram_id, chat_id, username, first_name, locale, plan_code,
       subscription_expires_at, is_blocked, is_staff, created_at, updated_at, last_request_at
FROM profiles
WHERE telegram_id = $1
`, telegramID).Scan(&p.TelegramID, &p.ChatID, &p.Username, &p.FirstName, &p.Locale, &p.PlanCode,
		&p.SubscriptionExpiresAt, &p.IsBlocked, &p.IsStaff, &p.CreatedAt, &p.UpdatedAt, &p.LastRequestAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) SetPlan(telegramID int64, planCode string, expiresAt *time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE profiles
SET plan_code = $2, subscription_expires_at = $3, updated_at = NOW()
WHERE telegram_id = $1
`, telegramID, strings.TrimSpace(planCode), expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TouchLastRequest(telegramID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE profiles SET last_request_at = NOW(), updated_at = NOW() WHERE telegram_id = $1
`, telegramID)
	return err
}

func (s *PostgresStore) CreatePlan(p types.Plan) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
INSERT INTO plans (code, name, price, duration_days, daily_sessions_limit, cards_limit, recurring_id, is_active, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (code) DO NOTHING
`, strings.TrimSpace(p.Code), strings.TrimSpace(p.Name), p.Price, p.DurationDays,
		p.DailySessionsLimit, p.CardsLimit, p.RecurringID, p.IsActive, p.Description)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetPlan(code string) (*types.Plan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var p types.Plan
	err := s.pool.QueryRow(ctx, `
SELECT code, name, price, duration_days, daily_sessions_limit, cards_limit, recurring_id, is_active, description
FROM plans
WHERE code = $1 AND is_active
`, strings.TrimSpace(code)).Scan(&p.Code, &p.Name, &p.Price, &p.DurationDays,
		&p.DailySessionsLimit, &p.CardsLimit, &p.RecurringID, &p.IsActive, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ListPlans() ([]types.Plan, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT code, name, price, duration_days, daily_sessions_limit, cards_limit, recurring_id, is_active, description
FROM plans
ORDER BY price
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]types.Plan, 0)
	for rows.Next() {
		var p types.Plan
		if err := rows.Scan(&p.Code, &p.Name, &p.Price, &p.DurationDays,
			&p.DailySessionsLimit, &p.CardsLimit, &p.RecurringID, &p.IsActive, &p.Description); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) StartAttempt(telegramID int64, requestText, requestCategory, cardStyle string, cardNumber int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO sessions (telegram_id, request_text, request_category, card_style, card_number)
VALUES ($1, $2, $3, $4, $5)
`, telegramID, requestText, strings.TrimSpace(requestCategory), strings.TrimSpace(cardStyle), cardNumber)
	return err
}

func (s *PostgresStore) CompleteLatestOpenAttempt(telegramID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE sessions
SET completed_at = NOW()
WHERE id = (
  SELECT id FROM sessions
  WHERE telegram_id = $1 AND completed_at IS NULL
  ORDER BY started_at DESC
  LIMIT 1
)
`, telegramID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DailySessionCount(telegramID int64, from, to time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var n int
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM sessions
WHERE telegram_id = $1 AND started_at >= $2 AND started_at < $3
`, telegramID, from, to).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PostgresStore) CreateOrder(o types.PaymentOrder) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	currency := strings.TrimSpace(o.Currency)
	if currency == "" {
		currency = "RUB"
	}
	status := o.Status
	if status == "" {
		status = types.OrderPending
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO payment_orders (order_id, telegram_id, plan_code, amount, currency, status, payment_id, subscription_id, webhook_data)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, strings.TrimSpace(o.OrderID), o.TelegramID, o.PlanCode, o.Amount, currency, string(status),
		strings.TrimSpace(o.PaymentID), strings.TrimSpace(o.SubscriptionID), o.WebhookData)
	return err
}

func (s *PostgresStore) GetOrder(orderID string) (*types.PaymentOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var o types.PaymentOrder
	var status string
	err := s.pool.QueryRow(ctx, `
SELECT order_id, telegram_id, plan_code, amount, currency, status, payment_id, subscription_id, webhook_data, created_at, updated_at, paid_at
FROM payment_orders
WHERE order_id = $1
`, strings.TrimSpace(orderID)).Scan(&o.OrderID, &o.TelegramID, &o.PlanCode, &o.Amount, &o.Currency,
		&status, &o.PaymentID, &o.SubscriptionID, &o.WebhookData, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = types.OrderStatus(status)
	return &o, nil
}

func (s *PostgresStore) MarkOrderSuccess(orderID, paymentID, subscriptionID string, payload []byte) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx, `
SELECT status FROM payment_orders WHERE order_id = $1 FOR UPDATE
`, strings.TrimSpace(orderID)).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}

	first := types.OrderStatus(status) != types.OrderSuccess
	if first {
		_, err = tx.Exec(ctx, `
UPDATE payment_orders
SET status = 'success',
    paid_at = NOW(),
    payment_id = COALESCE(NULLIF($2, ''), payment_id),
    subscription_id = COALESCE(NULLIF($3, ''), subscription_id),
    webhook_data = $4,
    updated_at = NOW()
WHERE order_id = $1
`, strings.TrimSpace(orderID), strings.TrimSpace(paymentID), strings.TrimSpace(subscriptionID), payload)
	} else {
		_, err = tx.Exec(ctx, `
UPDATE payment_orders
SET webhook_data = $2, updated_at = NOW()
WHERE order_id = $1
`, strings.TrimSpace(orderID), payload)
	}
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return first, nil
}

func (s *PostgresStore) UpdateOrderWebhook(orderID string, status types.OrderStatus, paymentID, subscriptionID string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `
SELECT status FROM payment_orders WHERE order_id = $1 FOR UPDATE
`, strings.TrimSpace(orderID)).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if types.OrderStatus(current) == types.OrderSuccess {
		// success is terminal, a stale delivery only refreshes the audit trail
		_, err = tx.Exec(ctx, `
UPDATE payment_orders SET webhook_data = $2, updated_at = NOW() WHERE order_id = $1
`, strings.TrimSpace(orderID), payload)
	} else {
		_, err = tx.Exec(ctx, `
UPDATE payment_orders
SET status = $2,
    payment_id = COALESCE(NULLIF($3, ''), payment_id),
    subscription_id = COALESCE(NULLIF($4, ''), subscription_id),
    webhook_data = $5,
    updated_at = NOW()
WHERE order_id = $1
`, strings.TrimSpace(orderID), string(status), strings.TrimSpace(paymentID), strings.TrimSpace(subscriptionID), payload)
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) AppendState(telegramID int64, stateName, description string, recordedAt time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM profiles WHERE telegram_id = $1)
`, telegramID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO state_types (state_name, description)
VALUES ($1, $2)
ON CONFLICT (state_name) DO NOTHING
`, strings.TrimSpace(stateName), description)
	if err != nil {
		return err
	}

	var at *time.Time
	if !recordedAt.IsZero() {
		at = &recordedAt
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO state_records (telegram_id, state_type_id, created_at)
SELECT $1, id, COALESCE($3::timestamptz, NOW()) FROM state_types WHERE state_name = $2
`, telegramID, strings.TrimSpace(stateName), at)
	return err
}

func (s *PostgresStore) GetStatistics() (*types.Statistics, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var st types.Statistics
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&st.TotalUsers); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM profiles WHERE created_at >= NOW() - INTERVAL '7 days'
`).Scan(&st.RecentUsers); err != nil {
		return nil, err
	}
	if err := s.pool.QueryRow(ctx, `
SELECT COUNT(DISTINCT r.telegram_id)
FROM state_records r
JOIN state_types t ON t.id = r.state_type_id
WHERE t.state_name = 'terminal'
`).Scan(&st.CompletedSessions); err != nil {
		return nil, err
	}
	return &st, nil
}
