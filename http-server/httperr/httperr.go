// Package httperr writes error responses and decodes validated request bodies.
package httperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"plantops/internal/access"
	"plantops/internal/apperr"
)

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

var validate = validator.New()

func init() {
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// Write maps err to its status and error code. Internal errors are logged with
// the full chain and answered with a generic message.
func Write(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()

	attrs := []any{
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("err", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", attrs...)
		message = "internal error"
	} else {
		log.Warn("request rejected", attrs...)
	}

	render.Status(r, status)
	render.JSON(w, r, Response{Status: "error", Error: apperr.Code(err), Message: message})
}

// Decode reads a JSON body into v and runs its validate tags.
func Decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("invalid JSON: %v: %w", err, apperr.ErrValidation)
	}
	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%v: %w", err, apperr.ErrValidation)
		}
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field()+" "+fe.Tag())
		}
		sort.Strings(fields)
		return fmt.Errorf("%s: %w", strings.Join(fields, ", "), apperr.ErrValidation)
	}
	return nil
}

// IDParam parses a positive int64 URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, apperr.ErrValidation)
	}
	return id, nil
}

// Actor returns the authenticated actor placed in the context by the auth middleware.
func Actor(r *http.Request) (access.Actor, error) {
	actor, ok := access.ActorFrom(r.Context())
	if !ok {
		return access.Actor{}, apperr.ErrUnauthorized
	}
	return actor, nil
}

// ActorID returns the authenticated actor together with the id URL parameter name.
func ActorID(r *http.Request, name string) (access.Actor, int64, error) {
	actor, err := Actor(r)
	if err != nil {
		return access.Actor{}, 0, err
	}
	id, err := IDParam(r, name)
	if err != nil {
		return access.Actor{}, 0, err
	}
	return actor, id, nil
}

// Date parses an optional YYYY-MM-DD value; empty gives the zero time.
func Date(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", name, value, apperr.ErrValidation)
	}
	return t, nil
}

// QueryID parses a required positive int64 query parameter.
func QueryID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, apperr.ErrValidation)
	}
	return id, nil
}
