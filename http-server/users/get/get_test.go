package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"plantops/internal/storage"
)

type MockUserLister struct {
	mock.Mock
}

func (m *MockUserLister) ListUsers(ctx context.Context) ([]storage.User, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]storage.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestGetUsers(t *testing.T) {
	users := new(MockUserLister)
	users.On("ListUsers", mock.Anything).Return([]storage.User{
		{ID: 1, Login: "admin", Role: "admin", PasswordHash: "$2a$10$secret", Active: true},
	}, nil).Once()
	users.On("ListUsers", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	rr := httptest.NewRecorder()
	GetUsers(slog.Default(), users).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"login":"admin"`)
	assert.NotContains(t, rr.Body.String(), "secret")

	rr = httptest.NewRecorder()
	GetUsers(slog.Default(), users).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
