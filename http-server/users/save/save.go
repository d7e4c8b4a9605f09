package save

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/access"
	"plantops/internal/middleware/auth"
	"plantops/internal/storage"
)

type UserCreator interface {
	CreateUser(ctx context.Context, u *storage.User) error
}

type Request struct {
	Login        string  `json:"login" validate:"required,max=128"`
	Name         string  `json:"name" validate:"max=255"`
	Password     string  `json:"password" validate:"required,min=8,max=72"`
	Role         string  `json:"role" validate:"required,oneof=manager admin"`
	CompanyIDs   []int64 `json:"company_ids" validate:"dive,gt=0"`
	DepartmentID int64   `json:"department_id" validate:"gte=0"`
}

func SaveUser(log *slog.Logger, users UserCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.SaveUser"

		var req Request
		if err := httperr.Decode(r, &req); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			httperr.Write(w, r, log, op, fmt.Errorf("hash password: %w", err))
			return
		}

		u := storage.User{
			Login:        req.Login,
			Name:         req.Name,
			PasswordHash: hash,
			Role:         req.Role,
			CompanyIDs:   req.CompanyIDs,
			DepartmentID: req.DepartmentID,
			Active:       true,
		}
		if err := users.CreateUser(r.Context(), &u); err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		log.Info("user created",
			slog.String("op", op),
			slog.String("login", u.Login),
			slog.String("role", u.Role),
			slog.Bool("privileged", access.FromUser(u).Privileged()),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, u)
	}
}
