package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// StripeClient implements Provider against a Stripe-style payment-intents
// API: form-encoded create, then confirm on the intent id.
type StripeClient struct {
	base      string
	secretKey string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*stripeIntent]
}

type stripeIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func NewStripeClient(base, secretKey string) *StripeClient {
	return &StripeClient{
		base:      strings.TrimRight(base, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[*stripeIntent](gobreaker.Settings{
			Name:    "stripe",
			Timeout: 30 * time.Second,
		}),
	}
}

func (c *StripeClient) CreateIntent(ctx context.Context, orderID string, amount float64) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(math.Round(amount*100)), 10)) // cents
	form.Set("currency", "usd")
	form.Set("metadata[order_id]", orderID)

	intent, err := c.post(ctx, c.base+"/v1/payment_intents", form)
	if err != nil {
		return "", err
	}
	return intent.ID, nil
}

func (c *StripeClient) Confirm(ctx context.Context, reference string) (Result, error) {
	intent, err := c.post(ctx, fmt.Sprintf("%s/v1/payment_intents/%s/confirm", c.base, reference), url.Values{})
	if err != nil {
		return Result{}, err
	}

	if intent.Status != "succeeded" {
		return Result{}, fmt.Errorf("%w: stripe status %s", ErrPaymentFailed, intent.Status)
	}
	return Result{ID: intent.ID, Status: intent.Status}, nil
}

func (c *StripeClient) post(ctx context.Context, endpoint string, form url.Values) (*stripeIntent, error) {
	intent, err := c.breaker.Execute(func() (*stripeIntent, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Bearer "+c.secretKey)

		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(httpResp.Body)
			return nil, fmt.Errorf("stripe responded %d: %s", httpResp.StatusCode, msg)
		}

		var parsed stripeIntent
		if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("decode stripe response: %w", err)
		}
		return &parsed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stripe request: %w", err)
	}
	return intent, nil
}
