package deviceauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/farepass/internal/apperrors"
	"github.com/nkiryanov/farepass/internal/models"
	"github.com/nkiryanov/farepass/internal/repository"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 24 * time.Hour
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	DeviceID uuid.UUID `json:"did"`
}

// Device auth service with sensible defaults
type Config struct {
	// Secret key to sign access tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Hasher used for device secrets
	// If not set bcrypt is used
	Hasher SecretHasher
}

// Service authenticates validator devices: registration with a bcrypt-hashed
// secret, JWT access tokens and single-use refresh tokens kept in the ledger DB.
type Service struct {
	key        string
	alg        jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	hasher     SecretHasher

	deviceRepo repository.DeviceRepo
	tokenRepo  repository.DeviceTokenRepo
}

func NewService(cfg Config, deviceRepo repository.DeviceRepo, tokenRepo repository.DeviceTokenRepo) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if deviceRepo == nil || tokenRepo == nil {
		return nil, errors.New("repos must not be nil")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTokenTTL
	}
	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}

	return &Service{
		key:        cfg.SecretKey,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		hasher:     cfg.Hasher,
		deviceRepo: deviceRepo,
		tokenRepo:  tokenRepo,
	}, nil
}

func (s *Service) Register(ctx context.Context, name string, secret string) (models.Device, error) {
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return models.Device{}, fmt.Errorf("can't use this as secret. Err: %w", err)
	}

	device, err := s.deviceRepo.CreateDevice(ctx, name, hash)
	if err != nil {
		return device, fmt.Errorf("can't create device. Err: %w", err)
	}

	return device, nil
}

func (s *Service) Login(ctx context.Context, name string, secret string) (models.TokenPair, error) {
	device, err := s.deviceRepo.GetDeviceByName(ctx, name)
	if err != nil {
		return models.TokenPair{}, apperrors.ErrDeviceNotFound
	}

	if err := s.hasher.Compare(device.HashedSecret, secret); err != nil {
		return models.TokenPair{}, apperrors.ErrDeviceNotFound
	}

	return s.generatePair(ctx, device)
}

// Refresh issues a fresh pair in exchange for a valid, unused refresh token
func (s *Service) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	token, err := s.tokenRepo.Get(ctx, refresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	if token.ExpiresAt.Before(time.Now()) {
		return models.TokenPair{}, fmt.Errorf("refresh rejected. Err: %w", apperrors.ErrRefreshTokenExpired)
	}

	if _, err := s.tokenRepo.MarkUsed(ctx, refresh); err != nil {
		return models.TokenPair{}, err
	}

	device, err := s.deviceRepo.GetDeviceByID(ctx, token.DeviceID)
	if err != nil {
		return models.TokenPair{}, err
	}

	return s.generatePair(ctx, device)
}

// Parse and validate access token
func (s *Service) ParseAccess(access string) (deviceID uuid.UUID, err error) {
	claims := &AccessTokenClaims{}

	_, err = jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(s.key), nil },
		jwt.WithValidMethods([]string{s.alg.Alg()}),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	return claims.DeviceID, nil
}

// Auth reads the bearer access token from the request and returns the device
func (s *Service) Auth(ctx context.Context, r *http.Request) (models.Device, error) {
	header := r.Header.Get("Authorization")
	access, found := strings.CutPrefix(header, "Bearer ")
	if !found || access == "" {
		return models.Device{}, errors.New("missing bearer token")
	}

	deviceID, err := s.ParseAccess(access)
	if err != nil {
		return models.Device{}, err
	}

	return s.deviceRepo.GetDeviceByID(ctx, deviceID)
}

func (s *Service) generatePair(ctx context.Context, device models.Device) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(s.accessTTL)
	refreshExpiresAt := now.Add(s.refreshTTL)

	// Generate JWT access token encoded as string
	accessToken := jwt.NewWithClaims(
		s.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(accessExpiresAt),
			},
			DeviceID: device.ID,
		},
	)
	access, err := accessToken.SignedString([]byte(s.key))
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	// Generate random refresh token 16 bytes length
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return pair, fmt.Errorf("error while generate refresh token. Err: %w", err)
	}
	refresh := hex.EncodeToString(b)

	err = s.tokenRepo.Save(ctx, models.DeviceRefreshToken{
		ID:        uuid.New(),
		DeviceID:  device.ID,
		Token:     refresh,
		CreatedAt: now,
		ExpiresAt: refreshExpiresAt,
		UsedAt:    nil,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}
