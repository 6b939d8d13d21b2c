package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/handlers/devicectx"
	"github.com/nkiryanov/farepass/internal/handlers/render"
	"github.com/nkiryanov/farepass/internal/logger"
)

// handleOfflineSync hands a device the state it needs before losing
// connectivity: a fresh batch of single-use offline tokens and the color seeds
// of the passes whose freshness it will have to check locally.
func handleOfflineSync(passes passService, pool offlinePool, l logger.Logger) http.Handler {
	type request struct {
		PassIDs []uuid.UUID `json:"pass_ids" validate:"required"`
	}

	type tokenResponse struct {
		JTI       uuid.UUID `json:"jti"`
		IssuedAt  int64     `json:"iat"`
		ExpiresAt int64     `json:"exp"`
		Signature string    `json:"signature"`
	}

	type response struct {
		Tokens []tokenResponse   `json:"tokens"`
		Seeds  map[string]string `json:"seeds"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device, ok := devicectx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		seeds, err := passes.SeedSnapshot(r.Context(), data.PassIDs)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrPassNotFound):
			render.ServiceError(w, "Pass not found", http.StatusNotFound)
			return
		default:
			l.Error("Failed to snapshot pass seeds", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		issued, err := pool.Sync(time.Now(), seeds)
		if err != nil {
			l.Error("Failed to sync offline pool", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{
			Tokens: make([]tokenResponse, 0, len(issued)),
			Seeds:  make(map[string]string, len(seeds)),
		}
		for _, token := range issued {
			resp.Tokens = append(resp.Tokens, tokenResponse{
				JTI:       token.JTI,
				IssuedAt:  token.IssuedAt,
				ExpiresAt: token.ExpiresAt,
				Signature: token.Signature,
			})
		}
		for passID, seed := range seeds {
			resp.Seeds[passID.String()] = seed
		}

		l.Info("offline state synced",
			"device_id", device.ID,
			"tokens", len(resp.Tokens),
			"passes", len(resp.Seeds),
		)
		render.JSON(w, resp)
	})
}
