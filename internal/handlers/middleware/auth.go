package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/farepass/internal/handlers/devicectx"
	"github.com/nkiryanov/farepass/internal/handlers/render"
	"github.com/nkiryanov/farepass/internal/models"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (models.Device, error)
}

func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			device, err := as.Auth(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := devicectx.New(r.Context(), device)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
