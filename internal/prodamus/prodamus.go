// Package prodamus integrates with the Prodamus payment gateway.
// API reference: https://docs.prodamuspay.ru/en/
package prodamus

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mac-card-bot/types"
)

type Config struct {
	MerchantURL string
	SecretKey   string
	TestMode    bool
	WebhookURL  string
	SuccessURL  string
	ReturnURL   string
	SystemTag   string
}

type Service struct {
	cfg    Config
	secret string
}

func New(cfg Config) *Service {
	if cfg.SystemTag == "" {
		cfg.SystemTag = "mac_card_bot"
	}
	secret := cfg.SecretKey
	// demo payments are signed with a suffixed key
	if cfg.TestMode {
		secret += "demo"
		log.Info().Msg("prodamus: demo secret key in use")
	}
	return &Service{cfg: cfg, secret: secret}
}

// GenerateOrderID builds an order id of the form
// ORDER_{telegram_id}_{plan}_{random}.
func (s *Service) GenerateOrderID(telegramID int64, planCode string) string {
	unique := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("ORDER_%d_%s_%s", telegramID, planCode, unique)
}

// canonicalJSON renders the payload as compact JSON with alphabetically
// sorted keys and raw UTF-8, the exact form the gateway signs.
func canonicalJSON(data map[string]string) (string, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeJSONString(&buf, enc, k); err != nil {
			return "", err
		}
		buf.WriteByte(':')
		if err := encodeJSONString(&buf, enc, data[k]); err != nil {
			return "", err
		}
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func encodeJSONString(buf *bytes.Buffer, enc *json.Encoder, s string) error {
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline
	b := buf.Bytes()
	if len(b) > 0 && b[len(b)-1] == '\n' {
		buf.Truncate(len(b) - 1)
	}
	return nil
}

// Sign computes the HMAC SHA256 hex signature over the canonical JSON form
// of the payload.
func (s *Service) Sign(data map[string]string) (string, error) {
	payload, err := canonicalJSON(data)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a webhook signature. The signature field itself is excluded
// from the signed payload.
func (s *Service) Verify(data map[string]string, receivedSignature string) bool {
	payload := make(map[string]string, len(data))
	for k, v := range data {
		if k == "signature" {
			continue
		}
		payload[k] = v
	}

	expected, err := s.Sign(payload)
	if err != nil {
		log.Error().Err(err).Msg("prodamus: signature computation failed")
		return false
	}

	valid := hmac.Equal([]byte(expected), []byte(receivedSignature))
	if !valid {
		log.Warn().
			Str("expected_prefix", expected[:10]).
			Msg("prodamus: invalid webhook signature")
	}
	return valid
}

// CreatePaymentLink builds a signed payment URL for the order. Plans with a
// gateway recurring id are sold as subscriptions, the rest as one-off
// product purchases.
func (s *Service) CreatePaymentLink(orderID string, plan *types.Plan, telegramID int64, username string) (string, error) {
	data := map[string]string{
		"do":              "link",
		"order_id":        orderID,
		"customer_extra":  strconv.FormatInt(telegramID, 10),
		"urlNotification": s.cfg.WebhookURL,
		"urlSuccess":      s.cfg.SuccessURL,
		"sys":             s.cfg.SystemTag,
	}

	if plan.RecurringID != nil && *plan.RecurringID != "" {
		data["subscription"] = *plan.RecurringID
	} else {
		data["products[0][name]"] = plan.Name
		data["products[0][price]"] = strconv.FormatInt(plan.Price, 10)
		data["products[0][quantity]"] = "1"
		log.Warn().Str("plan", plan.Code).Msg("prodamus: no recurring id, selling as product")
	}

	if s.cfg.ReturnURL != "" {
		data["urlReturn"] = s.cfg.ReturnURL
	}
	if username != "" {
		data["customer_comment"] = "Telegram: @" + username
	}
	if s.cfg.TestMode {
		data["do"] = "test"
	}

	signature, err := s.Sign(data)
	if err != nil {
		return "", err
	}
	data["signature"] = signature

	values := url.Values{}
	for k, v := range data {
		values.Set(k, v)
	}
	paymentURL := s.cfg.MerchantURL + "?" + values.Encode()

	log.Info().
		Str("order_id", orderID).
		Str("plan", plan.Code).
		Int64("price", plan.Price).
		Msg("prodamus: payment link created")
	return paymentURL, nil
}
