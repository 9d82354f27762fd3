// Package webhook exposes the HTTP surface of the payment integration:
// the gateway notification endpoint and the post-payment success page.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"mac-card-bot/types"
)

// Verifier checks a webhook signature against the payload.
type Verifier interface {
	Verify(data map[string]string, signature string) bool
}

// Activator puts a profile on a plan after a confirmed payment.
type Activator interface {
	Activate(telegramID int64, planCode string) (*time.Time, error)
}

// Notifier tells the profile their subscription is live. Delivery failures
// are the notifier's problem, activation must not depend on them.
type Notifier interface {
	NotifyActivated(telegramID int64, planCode string, expiresAt *time.Time)
}

type Server struct {
	engine    *gin.Engine
	orders    types.OrderStore
	profiles  types.ProfileStore
	verifier  Verifier
	activator Activator
	notifier  Notifier
}

func NewServer(orders types.OrderStore, profiles types.ProfileStore, verifier Verifier, activator Activator, notifier Notifier) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.HandleMethodNotAllowed = true

	s := &Server{
		engine:    engine,
		orders:    orders,
		profiles:  profiles,
		verifier:  verifier,
		activator: activator,
		notifier:  notifier,
	}

	engine.POST("/api/prodamus/webhook", s.handleWebhook)
	engine.GET("/api/prodamus/success", s.handleSuccess)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func formToMap(c *gin.Context) (map[string]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	data := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			data[k] = v[0]
		}
	}
	return data, nil
}

func (s *Server) handleWebhook(c *gin.Context) {
	data, err := formToMap(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	orderID := data["order_id"]
	paymentStatus := strings.ToLower(data["payment_status"])
	paymentID := data["payment_id"]
	subscriptionID := data["subscription_id"]
	customerExtra := data["customer_extra"]
	signature := data["signature"]

	log.Info().
		Str("order_id", orderID).
		Str("payment_status", paymentStatus).
		Msg("payment webhook received")

	if orderID == "" || paymentStatus == "" || signature == "" {
		log.Error().Msg("payment webhook missing required fields")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if !s.verifier.Verify(data, signature) {
		log.Warn().Str("order_id", orderID).Msg("payment webhook signature invalid")
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		return
	}

	if _, err := s.orders.GetOrder(orderID); err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			log.Error().Err(err).Str("order_id", orderID).Msg("order lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		// the webhook can outrun order creation, recover from customer_extra
		if customerExtra == "" {
			log.Error().Str("order_id", orderID).Msg("unknown order without customer_extra")
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		if err := s.recoverOrder(orderID, customerExtra, paymentID, subscriptionID); err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("order recovery failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer data"})
			return
		}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if paymentStatus == "success" {
		first, err := s.orders.MarkOrderSuccess(orderID, paymentID, subscriptionID, payload)
		if err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("order success update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if first {
			s.activateOrder(orderID)
		} else {
			log.Info().Str("order_id", orderID).Msg("duplicate success webhook ignored")
		}
	} else {
		err := s.orders.UpdateOrderWebhook(orderID, types.OrderStatus(paymentStatus), paymentID, subscriptionID, payload)
		if err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("order status update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"order_id":       orderID,
		"payment_status": paymentStatus,
	})
}

// recoverOrder creates a pending order for a webhook that arrived before the
// order row. The plan stays unset and must be reconciled by hand.
func (s *Server) recoverOrder(orderID, customerExtra, paymentID, subscriptionID string) error {
	telegramID, err := strconv.ParseInt(customerExtra, 10, 64)
	if err != nil {
		return fmt.Errorf("bad customer_extra %q: %w", customerExtra, err)
	}
	if _, err := s.profiles.GetProfile(telegramID); err != nil {
		return fmt.Errorf("profile %d: %w", telegramID, err)
	}

	order := types.PaymentOrder{
		OrderID:        orderID,
		TelegramID:     telegramID,
		Status:         types.OrderPending,
		PaymentID:      paymentID,
		SubscriptionID: subscriptionID,
	}
	if err := s.orders.CreateOrder(order); err != nil {
		return err
	}
	log.Warn().Str("order_id", orderID).Int64("telegram_id", telegramID).Msg("order created from webhook")
	return nil
}

func (s *Server) activateOrder(orderID string) {
	order, err := s.orders.GetOrder(orderID)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("paid order reload failed")
		return
	}
	if order.PlanCode == nil || *order.PlanCode == "" {
		log.Error().Str("order_id", orderID).Msg("paid order has no plan set")
		return
	}

	expiresAt, err := s.activator.Activate(order.TelegramID, *order.PlanCode)
	if err != nil {
		log.Error().Err(err).
			Str("order_id", orderID).
			Int64("telegram_id", order.TelegramID).
			Msg("subscription activation failed")
		return
	}

	log.Info().
		Str("order_id", orderID).
		Int64("telegram_id", order.TelegramID).
		Str("plan", *order.PlanCode).
		Msg("subscription activated")

	if s.notifier != nil {
		s.notifier.NotifyActivated(order.TelegramID, *order.PlanCode, expiresAt)
	}
}

func (s *Server) handleSuccess(c *gin.Context) {
	orderID := c.Query("order_id")

	detail := ""
	if orderID != "" {
		if order, err := s.orders.GetOrder(orderID); err == nil {
			if order.PlanCode != nil {
				detail = fmt.Sprintf("<p>Тариф: <b>%s</b></p>", *order.PlanCode)
			}
			log.Info().Str("order_id", orderID).Msg("success page viewed")
		} else {
			log.Warn().Str("order_id", orderID).Msg("success page for unknown order")
		}
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="ru">
<head><meta charset="utf-8"><title>Оплата прошла</title></head>
<body>
<h1>✅ Оплата прошла успешно!</h1>
%s
<p>Вернитесь в Telegram и нажмите /start, чтобы вытянуть карту.</p>
</body>
</html>`, detail)

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
