// Package gateway is the payment bridge: the three operations of the
// external gateway the engine depends on (initialize, verify, transfer).
// The protocol beyond these calls is not modeled.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
)

const statusSuccess = "success"

type Client struct {
	secretKey   string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(secretKey, baseURL, callbackURL string, logger *zap.Logger) *Client {
	return &Client{
		secretKey:   secretKey,
		baseURL:     baseURL,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

type InitializeRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	TxRef     string  `json:"tx_ref"`
}

type initializePayload struct {
	InitializeRequest
	CallbackURL string `json:"callback_url"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// Initialize starts a checkout and returns the hosted checkout URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (string, error) {
	payload := initializePayload{InitializeRequest: req, CallbackURL: c.callbackURL}

	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", payload, &resp); err != nil {
		return "", err
	}
	if resp.Status != statusSuccess {
		c.logger.Warn("Gateway rejected initialize",
			zap.String("tx_ref", req.TxRef),
			zap.String("status", resp.Status),
		)
		return "", fmt.Errorf("initialize transaction: %w", apperr.ErrGatewayUnavailable)
	}

	return resp.Data.CheckoutURL, nil
}

type verifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Verify returns the gateway-side status of a transaction reference.
func (c *Client) Verify(ctx context.Context, txRef string) (string, error) {
	url := c.baseURL + "/transaction/verify/" + txRef

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("verify transaction: %w", apperr.ErrGatewayUnavailable)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("verify transaction: gateway returned %d: %w", httpResp.StatusCode, apperr.ErrGatewayUnavailable)
	}

	var resp verifyResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}

	return resp.Data.Status, nil
}

type TransferRequest struct {
	AccountName   string  `json:"account_name"`
	AccountNumber string  `json:"account_number"`
	Amount        float64 `json:"amount"`
	Reference     string  `json:"reference"`
	BankCode      string  `json:"bank_code"`
	Currency      string  `json:"currency"`
}

type transferResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Transfer moves money out to a bank account (the refund side effect).
// Any failure maps to apperr.ErrGatewayUnavailable; the caller decides how
// to compensate.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) error {
	var resp transferResponse
	if err := c.post(ctx, "/transfers", req, &resp); err != nil {
		return err
	}
	if resp.Status != statusSuccess {
		c.logger.Warn("Gateway rejected transfer",
			zap.String("reference", req.Reference),
			zap.String("status", resp.Status),
			zap.String("message", resp.Message),
		)
		return fmt.Errorf("transfer: %w", apperr.ErrGatewayUnavailable)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call gateway: %w", apperr.ErrGatewayUnavailable)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return fmt.Errorf("call gateway: gateway returned %d: %w", httpResp.StatusCode, apperr.ErrGatewayUnavailable)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}

	return nil
}
