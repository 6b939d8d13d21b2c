package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/handlers/render"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/service/pass"
)

type passResponse struct {
	ID         string    `json:"id"`
	PassType   string    `json:"pass_type"`
	Status     string    `json:"status"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
	// remaining trips for SINGLE passes, -1 for unlimited
	Balance int `json:"balance"`
}

func toPassResponse(p models.Pass) passResponse {
	balance := -1
	if !p.Balance.Unlimited() {
		balance = p.Balance.Remaining
	}

	return passResponse{
		ID:         p.ID.String(),
		PassType:   p.PassType,
		Status:     p.Status,
		ValidFrom:  p.ValidFrom,
		ValidUntil: p.ValidUntil,
		Balance:    balance,
	}
}

func handlePurchasePass(passes passService, l logger.Logger) http.Handler {
	type request struct {
		PassType string          `json:"pass_type" validate:"required,oneof=SINGLE DAILY WEEKLY MONTHLY"`
		Amount   decimal.Decimal `json:"amount" validate:"required"`
		Currency string          `json:"currency"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		created, err := passes.Purchase(r.Context(), data.PassType, data.Amount, data.Currency)

		switch {
		case err == nil:
			render.JSON(w, toPassResponse(created))
		case errors.Is(err, pass.ErrUnknownPassType):
			render.ServiceError(w, "Unknown pass type", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to purchase pass", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetPass(passes passService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid pass id", http.StatusBadRequest)
			return
		}

		p, err := passes.GetPass(r.Context(), passID)

		switch {
		case err == nil:
			render.JSON(w, toPassResponse(p))
		case errors.Is(err, apperrors.ErrPassNotFound):
			render.ServiceError(w, "Pass not found", http.StatusNotFound)
		default:
			l.Error("Failed to get pass", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleIssuePassToken(passes passService, l logger.Logger) http.Handler {
	type response struct {
		Token      string    `json:"token"`
		ColorToken string    `json:"color_token"`
		ExpiresAt  time.Time `json:"expires_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid pass id", http.StatusBadRequest)
			return
		}

		issued, err := passes.IssueToken(r.Context(), passID)

		switch {
		case err == nil:
			render.JSON(w, response{
				Token:      issued.Token,
				ColorToken: issued.Payload.ColorToken,
				ExpiresAt:  issued.ExpiresAt,
			})
		case errors.Is(err, apperrors.ErrPassNotFound):
			render.ServiceError(w, "Pass not found", http.StatusNotFound)
		default:
			l.Error("Failed to issue pass token", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
