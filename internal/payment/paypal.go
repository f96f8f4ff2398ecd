package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// PayPalClient implements Provider against the PayPal orders API: OAuth
// client-credentials token, order creation with CAPTURE intent, then a
// capture call on the returned order id.
type PayPalClient struct {
	base     string
	clientID string
	secret   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*paypalResponse]
}

type paypalResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	Payer       struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

func NewPayPalClient(base, clientID, secret string) *PayPalClient {
	return &PayPalClient{
		base:     strings.TrimRight(base, "/"),
		clientID: clientID,
		secret:   secret,
		http:     &http.Client{Timeout: 15 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[*paypalResponse](gobreaker.Settings{
			Name:    "paypal",
			Timeout: 30 * time.Second,
		}),
	}
}

func (c *PayPalClient) CreateIntent(ctx context.Context, orderID string, amount float64) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": orderID,
				"amount": map[string]string{
					"currency_code": "USD",
					"value":         fmt.Sprintf("%.2f", amount),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal paypal order: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.base+"/v2/checkout/orders", token, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *PayPalClient) Confirm(ctx context.Context, reference string) (Result, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.base, reference)
	resp, err := c.do(ctx, http.MethodPost, url, token, nil)
	if err != nil {
		return Result{}, err
	}

	if resp.Status != "COMPLETED" {
		return Result{}, fmt.Errorf("%w: paypal status %s", ErrPaymentFailed, resp.Status)
	}
	return Result{ID: resp.ID, Status: resp.Status, EmailAddress: resp.Payer.EmailAddress}, nil
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	resp, err := c.breaker.Execute(func() (*paypalResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.base+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.clientID, c.secret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.send(req)
	})
	if err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	return resp.AccessToken, nil
}

func (c *PayPalClient) do(ctx context.Context, method, url, token string, body io.Reader) (*paypalResponse, error) {
	resp, err := c.breaker.Execute(func() (*paypalResponse, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return c.send(req)
	})
	if err != nil {
		return nil, fmt.Errorf("paypal request: %w", err)
	}
	return resp, nil
}

func (c *PayPalClient) send(req *http.Request) (*paypalResponse, error) {
	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("paypal responded %d: %s", httpResp.StatusCode, msg)
	}

	var parsed paypalResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode paypal response: %w", err)
	}
	return &parsed, nil
}
