package apperrors

import (
	"errors"
)

var (
	ErrPassNotFound       = errors.New("pass not found")
	ErrNoBalanceRemaining = errors.New("no balance remaining")

	ErrDeviceAlreadyExists = errors.New("device already exists")
	ErrDeviceNotFound      = errors.New("device not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrOfflinePoolExhausted = errors.New("offline token pool exhausted")
	ErrOfflineRecordExists  = errors.New("offline record already reconciled")
	ErrOfflineTokenInvalid  = errors.New("offline token signature invalid")
	ErrSeedNotInSnapshot    = errors.New("pass color seed not in offline snapshot")
	ErrReconcileIncomplete  = errors.New("reconciliation incomplete")
)
