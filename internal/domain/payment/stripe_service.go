// internal/domain/payment/stripe_service.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/infrastructure/database/redis"
)

// CheckoutSession is the subset of the Stripe checkout session object the
// service cares about.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"` // "paid" or "unpaid"
	AmountTotal   int64  `json:"amount_total"`
	ExpiresAt     int64  `json:"expires_at"`
	Metadata      struct {
		OrderOID string `json:"order_oid"`
	} `json:"metadata"`
}

// StripeService drives Stripe-hosted checkout sessions for immediate-class
// orders. Sessions are cached in Redis for the payment-success handler.
type StripeService struct {
	config       *config.Config
	orderService *order.Service
	cache        *redis.Client
	logger       *logrus.Logger
	baseURL      string
	httpClient   *http.Client
}

// NewStripeService creates a new Stripe service
func NewStripeService(cfg *config.Config, orderService *order.Service, cache *redis.Client, logger *logrus.Logger) *StripeService {
	return &StripeService{
		config:       cfg,
		orderService: orderService,
		cache:        cache,
		logger:       logger,
		baseURL:      "https://api.stripe.com/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateCheckoutSession creates a Stripe checkout session for a pending
// order and records the session id on the order.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, oid string) (*CheckoutSession, error) {
	ord, err := s.orderService.GetByOID(oid)
	if err != nil {
		return nil, err
	}
	if ord.PaymentStatus == order.PaymentStatusPaid {
		return nil, order.ErrAlreadyPaid
	}
	if ord.PaymentMethod != order.PaymentMethodStripe {
		return nil, order.ErrInvalidPaymentMethod
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", s.config.External.Stripe.SuccessURL+"?session_id={CHECKOUT_SESSION_ID}&order_oid="+ord.OID)
	form.Set("cancel_url", s.config.External.Stripe.CancelURL+"?order_oid="+ord.OID)
	form.Set("customer_email", ord.Email)
	form.Set("metadata[order_oid]", ord.OID)
	// Sessions expire after an hour
	form.Set("expires_at", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))

	for i, item := range ord.Items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Qty))
		form.Set(prefix+"[price_data][currency]", "usd")
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.Total/int64(item.Qty), 10))
		form.Set(prefix+"[price_data][product_data][name]", item.ProductTitle)
	}

	body, err := s.makeAPICall(ctx, http.MethodPost, "/checkout/sessions", form)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session response: %w", err)
	}

	if _, err := s.orderService.SetStripeSession(ord.OID, session.ID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		key := "stripe:session:" + session.ID
		if err := s.cache.SetJSON(ctx, key, &session, time.Hour); err != nil {
			s.logger.WithError(err).WithField("session_id", session.ID).Warn("failed to cache checkout session")
		}
	}

	return &session, nil
}

// ConfirmPayment verifies a checkout session against the Stripe API and, if
// Stripe reports it paid, marks the order paid. The mark-paid step is
// idempotent; a replayed success redirect cannot double-dispatch.
func (s *StripeService) ConfirmPayment(ctx context.Context, sessionID, oid string) (*order.Order, error) {
	ord, err := s.orderService.GetByOID(oid)
	if err != nil {
		return nil, err
	}
	if ord.StripeSessionID == "" || ord.StripeSessionID != sessionID {
		return nil, fmt.Errorf("session does not belong to this order")
	}

	body, err := s.makeAPICall(ctx, http.MethodGet, "/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session response: %w", err)
	}

	if session.PaymentStatus != "paid" {
		s.logger.WithFields(logrus.Fields{
			"oid":            oid,
			"session_status": session.Status,
			"payment_status": session.PaymentStatus,
		}).Info("checkout session not paid yet")
		return ord, nil
	}

	ord, _, err = s.orderService.MarkPaid(oid)
	if err != nil {
		return nil, err
	}
	return ord, nil
}

// makeAPICall makes form-encoded HTTP calls to the Stripe API
func (s *StripeService) makeAPICall(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	if s.config.External.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("stripe API credentials not configured")
	}

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.SetBasicAuth(s.config.External.Stripe.SecretKey, "")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API call failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
