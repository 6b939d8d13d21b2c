package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/handlers/devicectx"
	"github.com/nkiryanov/farepass/internal/handlers/render"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/offline"
	"github.com/nkiryanov/farepass/internal/service/validation"
)

func handleValidate(validator validationService, l logger.Logger) http.Handler {
	type request struct {
		Token string  `json:"token" validate:"required"`
		Color string  `json:"color" validate:"required,rgbcolor"`
		Lat   float64 `json:"lat"`
		Lng   float64 `json:"lng"`
	}

	type response struct {
		Decision string        `json:"decision"`
		Reason   string        `json:"reason,omitempty"`
		Method   string        `json:"method"`
		Recorded bool          `json:"recorded"`
		Pass     *passResponse `json:"pass,omitempty"`
		// remaining trips for SINGLE passes, -1 for unlimited
		RemainingBalance *int `json:"remaining_balance,omitempty"`
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

		outcome := validator.Validate(r.Context(), validation.Request{
			Token:          data.Token,
			PresentedColor: data.Color,
			Mode:           models.ValidationMethodOnline,
			DeviceID:       device.ID,
			Lat:            data.Lat,
			Lng:            data.Lng,
		})

		switch {
		case outcome.Decision == validation.DecisionRejected:
			l.Info("validation rejected", "device_id", device.ID, "reason", outcome.Reason)
		case outcome.Decision == validation.DecisionUndetermined:
			l.Warn("validation undetermined", "device_id", device.ID)
		case !outcome.Recorded:
			l.Warn("accepted validation was not recorded", "device_id", device.ID)
		}

		resp := response{
			Decision: outcome.Decision,
			Reason:   outcome.Reason,
			Method:   outcome.Method,
			Recorded: outcome.Recorded,
		}
		if outcome.Pass != nil {
			p := toPassResponse(*outcome.Pass)
			resp.Pass = &p

			remaining := -1
			if !outcome.Remaining.Unlimited() {
				remaining = outcome.Remaining.Remaining
			}
			resp.RemainingBalance = &remaining
		}

		render.JSON(w, resp)
	})
}

func handleReconcile(validator validationService, offlinePoolKey []byte, l logger.Logger) http.Handler {
	type usedToken struct {
		JTI       uuid.UUID `json:"jti" validate:"required"`
		PassID    uuid.UUID `json:"pass_id" validate:"required"`
		IssuedAt  int64     `json:"iat" validate:"required"`
		ExpiresAt int64     `json:"exp" validate:"required"`
		Signature string    `json:"signature" validate:"required"`
		UsedAt    time.Time `json:"used_at" validate:"required"`
	}

	type request struct {
		Used []usedToken `json:"used" validate:"required,dive"`
	}

	type response struct {
		Committed   int `json:"committed"`
		Duplicates  int `json:"duplicates"`
		Rejected    int `json:"rejected"`
		Unconfirmed int `json:"unconfirmed"`
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

		var resp response
		for _, u := range data.Used {
			// The signature binds {jti, iat, exp}: a device can't invent slots
			// it was never issued
			token := models.OfflineToken{
				JTI:       u.JTI,
				IssuedAt:  u.IssuedAt,
				ExpiresAt: u.ExpiresAt,
				Signature: u.Signature,
			}
			if err := offline.Verify(offlinePoolKey, token); err != nil {
				l.Warn("reconcile record rejected", "device_id", device.ID, "jti", u.JTI, "error", err)
				resp.Rejected++
				continue
			}

			err := validator.CommitOfflineValidation(r.Context(), device.ID, models.UsedOfflineToken{
				JTI:    u.JTI,
				PassID: u.PassID,
				UsedAt: u.UsedAt,
			})
			switch {
			case err == nil:
				resp.Committed++
			case isDuplicateOfflineRecord(err):
				resp.Duplicates++
			default:
				l.Error("Failed to commit offline validation", "error", err)
				resp.Unconfirmed++
			}
		}

		render.JSON(w, resp)
	})
}
