package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plantops/http-server/httperr"
	"plantops/internal/storage"
)

type UserLister interface {
	ListUsers(ctx context.Context) ([]storage.User, error)
}

// GetUsers lists every account; password hashes are never serialized.
func GetUsers(log *slog.Logger, users UserLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.users.GetUsers"

		list, err := users.ListUsers(r.Context())
		if err != nil {
			httperr.Write(w, r, log, op, err)
			return
		}

		log.Debug("users loaded", slog.String("op", op), slog.Int("count", len(list)))

		render.JSON(w, r, list)
	}
}
