package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"wagerpay/domain"
	"wagerpay/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Authorize_ChallengeRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/authorizations", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "req-1", body["request_id"])
		assert.Equal(t, "tok_visa", body["card_token"])
		assert.Equal(t, float64(2500), body["amount"])

		json.NewEncoder(w).Encode(map[string]any{
			"session_id":     "sess-42",
			"outcome":        "challenge_required",
			"challenge_data": "acs-blob",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.Authorize(context.Background(), interfaces.AuthorizeRequest{
		RequestID: "req-1",
		CardToken: "tok_visa",
		Amount:    2500,
		Currency:  "USD",
	})

	require.NoError(t, err)
	assert.Equal(t, "sess-42", result.SessionID)
	assert.Equal(t, interfaces.AuthorizeOutcomeChallenge, result.Outcome)
	assert.Equal(t, "acs-blob", result.ChallengeData)
}

func TestClient_PollChallenge_NotFoundMapsToNotReady(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"no result"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	decision, err := client.PollChallenge(context.Background(), "sess-42")

	assert.Nil(t, decision)
	assert.True(t, errors.Is(err, domain.ErrNotReady))
	// The adapter never retries; one call per invocation
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_PollChallenge_Decision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/authorizations/sess-42/challenge", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"approved": true, "auth_code": "A1B2"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	decision, err := client.PollChallenge(context.Background(), "sess-42")

	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, "A1B2", decision.AuthCode)
}

func TestClient_BankCredit_GatewayErrorCarriesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"account frozen"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.BankCredit(context.Background(), interfaces.BankRequest{
		RequestID: "req-9",
		Token:     "ba_tok",
		Amount:    4000,
		Currency:  "USD",
	})

	assert.Nil(t, result)
	var gatewayErr *domain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "bank_credit", gatewayErr.Operation)
	assert.Equal(t, http.StatusUnprocessableEntity, gatewayErr.Status)
	assert.Contains(t, gatewayErr.Body, "account frozen")
}

func TestClient_BankDebit_TokenizeIssuesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/bank/debits", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["tokenize"])
		account := body["account"].(map[string]any)
		assert.Equal(t, "021000021", account["routing_number"])

		json.NewEncoder(w).Encode(map[string]any{
			"approved":  true,
			"auth_code": "C3D4",
			"token":     "ba_tok_new",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.BankDebit(context.Background(), interfaces.BankRequest{
		RequestID: "req-2",
		Account: &interfaces.BankAccount{
			RoutingNumber: "021000021",
			AccountNumber: "000123456789",
			AccountName:   "Test Account",
		},
		Amount:   10000,
		Currency: "USD",
		Tokenize: true,
	})

	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.Equal(t, "ba_tok_new", result.Token)
}
