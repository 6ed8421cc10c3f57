package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// accepted amount range of the QRIS transaction API
	minAmount = 1_000
	maxAmount = 10_000_000

	defaultTimeout = 10 * time.Second
)

// Client is the Pakasir HTTP adapter.
type Client struct {
	baseURL string
	project string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, project, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		project: project,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

var _ PaymentGateway = (*Client)(nil)

type createPaymentResp struct {
	Payment *struct {
		PaymentNumber string `json:"payment_number"`
		TotalPayment  int64  `json:"total_payment"`
		Fee           int64  `json:"fee"`
		ExpiredAt     string `json:"expired_at"`
	} `json:"payment"`
}

// CreatePayment requests a QRIS payment code for the order.
func (c *Client) CreatePayment(ctx context.Context, orderID string, amount int64) (*Payment, error) {
	if amount < minAmount || amount > maxAmount {
		return nil, ErrAmountOutOfRange
	}

	payload, _ := json.Marshal(map[string]any{
		"project":  c.project,
		"order_id": orderID,
		"amount":   amount,
		"api_key":  c.apiKey,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactioncreate/qris", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Op: "create", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "create", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Op: "create", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body createPaymentResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Op: "create", Err: err}
	}
	if body.Payment == nil || body.Payment.PaymentNumber == "" {
		return nil, &Error{Op: "create", Err: fmt.Errorf("response carries no payment")}
	}

	qris, ok := ExtractQRIS(body.Payment.PaymentNumber)
	if !ok {
		return nil, &Error{Op: "create", Err: ErrInvalidPaymentCode}
	}

	p := &Payment{QRIS: qris, TotalPayment: body.Payment.TotalPayment, Fee: body.Payment.Fee}
	if p.TotalPayment == 0 {
		p.TotalPayment = amount
	}
	if body.Payment.ExpiredAt != "" {
		if t, err := time.Parse(time.RFC3339, body.Payment.ExpiredAt); err == nil {
			p.ExpiredAt = &t
		}
	}
	return p, nil
}

type transactionDetailResp struct {
	Transaction *struct {
		Status string `json:"status"`
	} `json:"transaction"`
	Status string `json:"status"`
}

// QueryStatus returns the transaction's raw status string in gateway
// vocabulary. The caller is expected to run it through domain.Normalize.
func (c *Client) QueryStatus(ctx context.Context, orderID string, amount int64) (string, error) {
	q := url.Values{}
	q.Set("project", c.project)
	q.Set("order_id", orderID)
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactiondetail?"+q.Encode(), nil)
	if err != nil {
		return "", &Error{Op: "status", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Op: "status", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Op: "status", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body transactionDetailResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &Error{Op: "status", Err: err}
	}
	if body.Transaction != nil {
		return body.Transaction.Status, nil
	}
	return body.Status, nil
}
