package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"plantops/internal/access"
	"plantops/internal/apperr"
	"plantops/internal/storage"
)

type MockUserProvider struct {
	mock.Mock
}

func (m *MockUserProvider) UserByLogin(ctx context.Context, login string) (*storage.User, error) {
	args := m.Called(ctx, login)
	if u := args.Get(0); u != nil {
		return u.(*storage.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func basic(login, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(login+":"+password))
}

func TestBasicAuth(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	users := new(MockUserProvider)
	users.On("UserByLogin", mock.Anything, "anita").Return(&storage.User{
		ID: 5, Login: "anita", PasswordHash: hash, Role: access.RoleManager, CompanyIDs: []int64{1}, Active: true,
	}, nil)
	users.On("UserByLogin", mock.Anything, "gone").Return(&storage.User{
		ID: 6, Login: "gone", PasswordHash: hash, Role: access.RoleManager, Active: false,
	}, nil)
	users.On("UserByLogin", mock.Anything, "nobody").Return(nil, fmt.Errorf("lookup: %w", apperr.ErrNotFound))
	users.On("UserByLogin", mock.Anything, "anyone").Return(nil, errors.New("dial tcp: connection refused"))

	var seen access.Actor
	handler := BasicAuth(slog.Default(), users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = access.ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", basic("anita", "s3cret"), http.StatusNoContent},
		{"wrong password", basic("anita", "nope"), http.StatusUnauthorized},
		{"inactive", basic("gone", "s3cret"), http.StatusUnauthorized},
		{"unknown user", basic("nobody", "x"), http.StatusUnauthorized},
		{"user store down", basic("anyone", "x"), http.StatusInternalServerError},
		{"no header", "", http.StatusUnauthorized},
		{"bad encoding", "Basic ###", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}

	assert.Equal(t, int64(5), seen.ID)
	assert.Equal(t, []int64{1}, seen.CompanyIDs)
}

func TestDummyHash(t *testing.T) {
	cost, err := bcrypt.Cost(dummyHash())
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
	assert.Equal(t, dummyHash(), dummyHash())
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(slog.Default(), access.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		ctx    context.Context
		status int
	}{
		{"admin", access.WithActor(context.Background(), access.Actor{ID: 1, Role: access.RoleAdmin}), http.StatusNoContent},
		{"manager", access.WithActor(context.Background(), access.Actor{ID: 2, Role: access.RoleManager}), http.StatusForbidden},
		{"anonymous", context.Background(), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tt.ctx)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestTelemetryToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name    string
		secret  string
		headers map[string]string
		status  int
	}{
		{"bearer", "abc", map[string]string{"Authorization": "Bearer abc"}, http.StatusNoContent},
		{"token scheme", "abc", map[string]string{"Authorization": "Token abc"}, http.StatusNoContent},
		{"ids header", "abc", map[string]string{"X-IDS-Token": "abc"}, http.StatusNoContent},
		{"wrong token", "abc", map[string]string{"Authorization": "Bearer abd"}, http.StatusUnauthorized},
		{"missing", "abc", nil, http.StatusUnauthorized},
		{"unset secret rejects", "", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ids/workcenter/update", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			TelemetryToken(slog.Default(), tt.secret)(ok).ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}
