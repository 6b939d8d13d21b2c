package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/handlers/render"
	"github.com/nkiryanov/farepass/internal/logger"
	"github.com/nkiryanov/farepass/internal/models"
)

func handleDeviceRegister(devices deviceService, l logger.Logger) http.Handler {
	type request struct {
		Name   string `json:"name" validate:"required,min=3"`
		Secret string `json:"secret" validate:"required,min=8"`
	}

	type response struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		device, err := devices.Register(r.Context(), data.Name, data.Secret)

		switch {
		case err == nil:
			render.JSON(w, response{ID: device.ID.String(), Name: device.Name})
		case errors.Is(err, apperrors.ErrDeviceAlreadyExists):
			render.ServiceError(w, "Device already exists", http.StatusConflict)
		default:
			l.Error("Failed to register device", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeviceLogin(devices deviceService, l logger.Logger) http.Handler {
	type request struct {
		Name   string `json:"name" validate:"required"`
		Secret string `json:"secret" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := devices.Login(r.Context(), data.Name, data.Secret)

		switch {
		case err == nil:
			render.JSON(w, tokenPairResponse(pair))
		case errors.Is(err, apperrors.ErrDeviceNotFound):
			render.ServiceError(w, "Invalid device credentials", http.StatusUnauthorized)
		default:
			l.Error("Failed to login device", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeviceRefresh(devices deviceService, l logger.Logger) http.Handler {
	type request struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := devices.Refresh(r.Context(), data.Refresh)

		switch {
		case err == nil:
			render.JSON(w, tokenPairResponse(pair))
		case errors.Is(err, apperrors.ErrRefreshTokenExpired),
			errors.Is(err, apperrors.ErrRefreshTokenIsUsed),
			errors.Is(err, apperrors.ErrRefreshTokenNotFound):
			render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
		default:
			l.Error("Failed to refresh device tokens", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

type tokenPair struct {
	Access           string    `json:"access"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	Refresh          string    `json:"refresh"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func tokenPairResponse(pair models.TokenPair) tokenPair {
	return tokenPair{
		Access:           pair.Access.Value,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		Refresh:          pair.Refresh.Value,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	}
}
