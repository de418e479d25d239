package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"wagerpay/domain"
	"wagerpay/domain/interfaces"
)

const defaultTimeout = 15 * time.Second

// Client is the HTTP settlement adapter for the external payment gateway.
// It is a stateless request/response wrapper: every call carries the caller's
// fresh request id, timeouts and non-success responses surface as
// GatewayError with the raw status and body, and this layer never retries.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a gateway client for the given base URL
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type authorizeResponse struct {
	SessionID     string `json:"session_id"`
	Outcome       string `json:"outcome"`
	MethodURL     string `json:"method_url"`
	ChallengeData string `json:"challenge_data"`
	AuthCode      string `json:"auth_code"`
}

type challengeResponse struct {
	Approved bool   `json:"approved"`
	AuthCode string `json:"auth_code"`
}

type bankResponse struct {
	Approved bool   `json:"approved"`
	AuthCode string `json:"auth_code"`
	Token    string `json:"token"`
}

// Authorize submits a card charge for authentication and capture
func (c *Client) Authorize(ctx context.Context, req interfaces.AuthorizeRequest) (*interfaces.AuthorizeResult, error) {
	body := map[string]any{
		"request_id": req.RequestID,
		"card_token": req.CardToken,
		"amount":     req.Amount,
		"currency":   req.Currency,
	}

	var out authorizeResponse
	if err := c.do(ctx, "authorize", http.MethodPost, "/v1/authorizations", body, &out); err != nil {
		return nil, err
	}
	return toAuthorizeResult(&out), nil
}

// ResolveMethod completes the silent fingerprinting step for a session
func (c *Client) ResolveMethod(ctx context.Context, sessionID string) (*interfaces.AuthorizeResult, error) {
	path := fmt.Sprintf("/v1/authorizations/%s/method", sessionID)

	var out authorizeResponse
	if err := c.do(ctx, "resolve_method", http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		out.SessionID = sessionID
	}
	return toAuthorizeResult(&out), nil
}

// PollChallenge fetches the decision for an interactive challenge. A 404
// means the result does not exist yet and maps to domain.ErrNotReady so the
// caller's backoff loop can retry.
func (c *Client) PollChallenge(ctx context.Context, sessionID string) (*interfaces.ChallengeDecision, error) {
	path := fmt.Sprintf("/v1/authorizations/%s/challenge", sessionID)

	var out challengeResponse
	if err := c.do(ctx, "poll_challenge", http.MethodGet, path, nil, &out); err != nil {
		var gatewayErr *domain.GatewayError
		if errors.As(err, &gatewayErr) && gatewayErr.Status == http.StatusNotFound {
			return nil, domain.ErrNotReady
		}
		return nil, err
	}
	return &interfaces.ChallengeDecision{Approved: out.Approved, AuthCode: out.AuthCode}, nil
}

// BankDebit pulls funds from a bank account
func (c *Client) BankDebit(ctx context.Context, req interfaces.BankRequest) (*interfaces.BankResult, error) {
	return c.bankOperation(ctx, "bank_debit", "/v1/bank/debits", req)
}

// BankCredit pushes funds to a bank account
func (c *Client) BankCredit(ctx context.Context, req interfaces.BankRequest) (*interfaces.BankResult, error) {
	return c.bankOperation(ctx, "bank_credit", "/v1/bank/credits", req)
}

func (c *Client) bankOperation(ctx context.Context, operation, path string, req interfaces.BankRequest) (*interfaces.BankResult, error) {
	body := map[string]any{
		"request_id": req.RequestID,
		"amount":     req.Amount,
		"currency":   req.Currency,
		"tokenize":   req.Tokenize,
	}
	if req.Token != "" {
		body["token"] = req.Token
	}
	if req.Account != nil {
		body["account"] = map[string]string{
			"routing_number": req.Account.RoutingNumber,
			"account_number": req.Account.AccountNumber,
			"account_name":   req.Account.AccountName,
		}
	}

	var out bankResponse
	if err := c.do(ctx, operation, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &interfaces.BankResult{Approved: out.Approved, AuthCode: out.AuthCode, Token: out.Token}, nil
}

// do performs one HTTP round trip. Non-2xx responses become GatewayError
// with the raw status and body.
func (c *Client) do(ctx context.Context, operation, method, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return &domain.GatewayError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.GatewayError{Operation: operation, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.GatewayError{Operation: operation, Status: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return &domain.GatewayError{Operation: operation, Status: resp.StatusCode, Body: string(raw), Err: err}
	}
	return nil
}

func toAuthorizeResult(out *authorizeResponse) *interfaces.AuthorizeResult {
	return &interfaces.AuthorizeResult{
		SessionID:     out.SessionID,
		Outcome:       interfaces.AuthorizeOutcome(out.Outcome),
		MethodURL:     out.MethodURL,
		ChallengeData: out.ChallengeData,
		AuthCode:      out.AuthCode,
	}
}
