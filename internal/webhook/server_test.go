package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"mac-card-bot/types"
)

type fakeVerifier struct {
	valid bool
}

func (f *fakeVerifier) Verify(data map[string]string, signature string) bool {
	return f.valid
}

type fakeOrders struct {
	orders       map[string]*types.PaymentOrder
	successCalls int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*types.PaymentOrder{}}
}

func (f *fakeOrders) CreateOrder(o types.PaymentOrder) error {
	f.orders[o.OrderID] = &o
	return nil
}

func (f *fakeOrders) GetOrder(orderID string) (*types.PaymentOrder, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) MarkOrderSuccess(orderID, paymentID, subscriptionID string, payload []byte) (bool, error) {
	f.successCalls++
	o, ok := f.orders[orderID]
	if !ok {
		return false, types.ErrNotFound
	}
	o.WebhookData = payload
	if o.Status == types.OrderSuccess {
		return false, nil
	}
	o.Status = types.OrderSuccess
	now := time.Now()
	o.PaidAt = &now
	o.PaymentID = paymentID
	o.SubscriptionID = subscriptionID
	return true, nil
}

func (f *fakeOrders) UpdateOrderWebhook(orderID string, status types.OrderStatus, paymentID, subscriptionID string, payload []byte) error {
	o, ok := f.orders[orderID]
	if !ok {
		return types.ErrNotFound
	}
	if o.Status != types.OrderSuccess {
		o.Status = status
	}
	o.WebhookData = payload
	return nil
}

type fakeProfiles struct {
	known map[int64]bool
}

func (f *fakeProfiles) UpsertProfile(p types.Profile) error { return nil }

func (f *fakeProfiles) GetProfile(telegramID int64) (*types.Profile, error) {
	if !f.known[telegramID] {
		return nil, types.ErrNotFound
	}
	return &types.Profile{TelegramID: telegramID, ChatID: telegramID}, nil
}

func (f *fakeProfiles) SetPlan(telegramID int64, planCode string, expiresAt *time.Time) error {
	return nil
}

func (f *fakeProfiles) TouchLastRequest(telegramID int64) error { return nil }

type fakeActivator struct {
	activations []string
	fail        bool
}

func (f *fakeActivator) Activate(telegramID int64, planCode string) (*time.Time, error) {
	if f.fail {
		return nil, types.ErrNotFound
	}
	f.activations = append(f.activations, planCode)
	return nil, nil
}

type fakeNotifier struct {
	notified []int64
}

func (f *fakeNotifier) NotifyActivated(telegramID int64, planCode string, expiresAt *time.Time) {
	f.notified = append(f.notified, telegramID)
}

func postWebhook(t *testing.T, srv *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/prodamus/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func successForm(orderID string) url.Values {
	return url.Values{
		"order_id":       {orderID},
		"payment_status": {"success"},
		"payment_id":     {"pay-1"},
		"customer_extra": {"42"},
		"signature":      {"sig"},
	}
}

func pendingOrder(orders *fakeOrders, orderID string, planCode string) {
	plan := planCode
	orders.orders[orderID] = &types.PaymentOrder{
		OrderID:    orderID,
		TelegramID: 42,
		PlanCode:   &plan,
		Status:     types.OrderPending,
	}
}

func TestWebhookMissingFields(t *testing.T) {
	srv := NewServer(newFakeOrders(), &fakeProfiles{}, &fakeVerifier{valid: true}, &fakeActivator{}, nil)

	form := url.Values{"order_id": {"ORDER_1"}}
	w := postWebhook(t, srv, form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	orders := newFakeOrders()
	pendingOrder(orders, "ORDER_1", "monthly")
	activator := &fakeActivator{}
	srv := NewServer(orders, &fakeProfiles{}, &fakeVerifier{valid: false}, activator, nil)

	w := postWebhook(t, srv, successForm("ORDER_1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if len(activator.activations) != 0 {
		t.Fatal("invalid signature must not activate anything")
	}
}

func TestWebhookUnknownOrderWithoutCustomerExtra(t *testing.T) {
	srv := NewServer(newFakeOrders(), &fakeProfiles{}, &fakeVerifier{valid: true}, &fakeActivator{}, nil)

	form := successForm("ORDER_MISSING")
	form.Del("customer_extra")
	w := postWebhook(t, srv, form)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestWebhookSuccessActivatesOnce(t *testing.T) {
	orders := newFakeOrders()
	pendingOrder(orders, "ORDER_1", "monthly")
	activator := &fakeActivator{}
	notifier := &fakeNotifier{}
	srv := NewServer(orders, &fakeProfiles{known: map[int64]bool{42: true}}, &fakeVerifier{valid: true}, activator, notifier)

	w := postWebhook(t, srv, successForm("ORDER_1"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" || resp["order_id"] != "ORDER_1" || resp["payment_status"] != "success" {
		t.Fatalf("unexpected response: %v", resp)
	}

	if len(activator.activations) != 1 || activator.activations[0] != "monthly" {
		t.Fatalf("activations = %v", activator.activations)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != 42 {
		t.Fatalf("notified = %v", notifier.notified)
	}

	// a duplicate delivery must be acknowledged but not re-activate
	w = postWebhook(t, srv, successForm("ORDER_1"))
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	if len(activator.activations) != 1 {
		t.Fatalf("duplicate webhook re-activated: %v", activator.activations)
	}
	if orders.successCalls != 2 {
		t.Fatalf("successCalls = %d", orders.successCalls)
	}
}

func TestWebhookRecoversOrderFromCustomerExtra(t *testing.T) {
	orders := newFakeOrders()
	activator := &fakeActivator{}
	srv := NewServer(orders, &fakeProfiles{known: map[int64]bool{42: true}}, &fakeVerifier{valid: true}, activator, nil)

	w := postWebhook(t, srv, successForm("ORDER_NEW"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	order, err := orders.GetOrder("ORDER_NEW")
	if err != nil {
		t.Fatal(err)
	}
	if order.TelegramID != 42 {
		t.Fatalf("recovered order telegram id = %d", order.TelegramID)
	}
	if order.Status != types.OrderSuccess {
		t.Fatalf("recovered order status = %s", order.Status)
	}
	// a recovered order has no plan, nothing to activate
	if len(activator.activations) != 0 {
		t.Fatalf("activations = %v", activator.activations)
	}
}

func TestWebhookRecoveryRejectsBadCustomerData(t *testing.T) {
	srv := NewServer(newFakeOrders(), &fakeProfiles{}, &fakeVerifier{valid: true}, &fakeActivator{}, nil)

	// unknown profile
	w := postWebhook(t, srv, successForm("ORDER_X"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	// unparsable telegram id
	form := successForm("ORDER_Y")
	form.Set("customer_extra", "not-a-number")
	w = postWebhook(t, srv, form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestWebhookNonSuccessStatus(t *testing.T) {
	orders := newFakeOrders()
	pendingOrder(orders, "ORDER_1", "monthly")
	activator := &fakeActivator{}
	srv := NewServer(orders, &fakeProfiles{}, &fakeVerifier{valid: true}, activator, nil)

	form := successForm("ORDER_1")
	form.Set("payment_status", "Failed")
	w := postWebhook(t, srv, form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	order, _ := orders.GetOrder("ORDER_1")
	if order.Status != types.OrderFailed {
		t.Fatalf("order status = %s, want failed", order.Status)
	}
	if len(activator.activations) != 0 {
		t.Fatal("failed payment must not activate")
	}
}

func TestSuccessPage(t *testing.T) {
	orders := newFakeOrders()
	pendingOrder(orders, "ORDER_1", "monthly")
	srv := NewServer(orders, &fakeProfiles{}, &fakeVerifier{valid: true}, &fakeActivator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/prodamus/success?order_id=ORDER_1", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "monthly") {
		t.Fatal("success page missing plan detail")
	}

	// unknown orders still render a generic page
	req = httptest.NewRequest(http.MethodGet, "/api/prodamus/success", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSuccessPageRejectsPost(t *testing.T) {
	srv := NewServer(newFakeOrders(), &fakeProfiles{}, &fakeVerifier{valid: true}, &fakeActivator{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/prodamus/success", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}
