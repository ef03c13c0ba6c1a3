package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/probtrack/pkg/api"
)

func TestPushOperation_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/document/operations", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req api.PushOperationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "MARK_SOLVED", req.Type)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.PushOperationResponse{
			Applied:          true,
			CurrentTimestamp: 1234,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.PushOperation(context.Background(), "test-token", api.PushOperationRequest{
		ID:        "op-1",
		Type:      "MARK_SOLVED",
		EntityID:  "two-sum",
		Timestamp: 1000,
	})

	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.Equal(t, int64(1234), resp.CurrentTimestamp)
}

func TestPushOperation_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.PushOperation(context.Background(), "expired", api.PushOperationRequest{ID: "op-1"})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, IsTransient(err))
}

func TestPushOperation_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ConflictResponse{
			Entity:          api.RemoteProblem{Slug: "two-sum", Solved: true},
			ChangedFields:   []string{"solved"},
			RemoteTimestamp: 9999,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.PushOperation(context.Background(), "token", api.PushOperationRequest{ID: "op-1"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"solved"}, conflict.Response.ChangedFields)
	assert.Equal(t, int64(9999), conflict.Response.RemoteTimestamp)
	assert.False(t, IsTransient(err))
}

func TestPushOperation_ServerError_IsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "database unavailable"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.PushOperation(context.Background(), "token", api.PushOperationRequest{ID: "op-1"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Contains(t, statusErr.Message, "database unavailable")
	assert.True(t, IsTransient(err))
}

func TestPushOperation_NetworkError_IsTransient(t *testing.T) {
	// Закрытый сервер - соединение откажет
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	_, err := client.PushOperation(context.Background(), "token", api.PushOperationRequest{ID: "op-1"})

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGetDocument_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetDocument(context.Background(), "token")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsTransient(err))
}

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		// Login не требует Authorization заголовка
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresIn:    3600,
			UserID:       "user-123",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login(context.Background(), api.LoginRequest{Username: "gopher", Password: "secret"})

	require.NoError(t, err)
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "user-123", resp.UserID)
}
