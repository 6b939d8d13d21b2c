package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/farepass/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction

	defaultPayloadValiditySeconds = 600
	defaultColorWindowSeconds     = 300

	defaultOfflineBatchSize            = 100
	defaultOfflineTokenValiditySeconds = 86400
	defaultOfflineStatePath            = "offline-state.json"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the farepass service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Used to sign device access tokens (JWT)
	SecretKey string

	// Key used to sign QR authorization payloads
	PayloadSigningKey string

	// Key used to derive the rolling color token
	ColorDerivationKey string

	// Key used to sign offline validation tokens
	OfflinePoolKey string

	// How long an issued QR payload stays valid
	PayloadValiditySeconds int

	// Rolling color token window size
	ColorWindowSeconds int

	// Offline token pool tuning
	OfflineBatchSize            int
	OfflineTokenValiditySeconds int

	// Where the validator keeps its offline state between restarts
	OfflineStatePath string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Environment: defaultEnvironment,

		PayloadValiditySeconds:      defaultPayloadValiditySeconds,
		ColorWindowSeconds:          defaultColorWindowSeconds,
		OfflineBatchSize:            defaultOfflineBatchSize,
		OfflineTokenValiditySeconds: defaultOfflineTokenValiditySeconds,
		OfflineStatePath:            defaultOfflineStatePath,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	// Set option if value is a valid integer, skip silently otherwise
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":  setString(&c.ListenAddr),
		"DATABASE_URI": setString(&c.DatabaseDSN),
		"SECRET_KEY":   setString(&c.SecretKey),
		"LOG_LEVEL":    setString(&c.LogLevel),
		"ENVIRONMENT":  setString(&c.Environment),

		"PAYLOAD_SIGNING_KEY":  setString(&c.PayloadSigningKey),
		"COLOR_DERIVATION_KEY": setString(&c.ColorDerivationKey),
		"OFFLINE_POOL_KEY":     setString(&c.OfflinePoolKey),

		"PAYLOAD_VALIDITY_SECONDS":       setInt(&c.PayloadValiditySeconds),
		"COLOR_WINDOW_SECONDS":           setInt(&c.ColorWindowSeconds),
		"OFFLINE_BATCH_SIZE":             setInt(&c.OfflineBatchSize),
		"OFFLINE_TOKEN_VALIDITY_SECONDS": setInt(&c.OfflineTokenValiditySeconds),
		"OFFLINE_STATE_PATH":             setString(&c.OfflineStatePath),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("farepass", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key to sign device access tokens")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	fs.StringVar(&c.PayloadSigningKey, "payload-key", c.PayloadSigningKey, "Key to sign QR authorization payloads")
	fs.StringVar(&c.ColorDerivationKey, "color-key", c.ColorDerivationKey, "Key to derive rolling color tokens")
	fs.StringVar(&c.OfflinePoolKey, "offline-key", c.OfflinePoolKey, "Key to sign offline validation tokens")

	fs.IntVar(&c.PayloadValiditySeconds, "payload-validity", c.PayloadValiditySeconds, "QR payload validity in seconds")
	fs.IntVar(&c.ColorWindowSeconds, "color-window", c.ColorWindowSeconds, "Color token window in seconds")
	fs.IntVar(&c.OfflineBatchSize, "offline-batch", c.OfflineBatchSize, "Offline token pool batch size")
	fs.IntVar(&c.OfflineTokenValiditySeconds, "offline-validity", c.OfflineTokenValiditySeconds, "Offline token validity in seconds")
	fs.StringVar(&c.OfflineStatePath, "offline-state", c.OfflineStatePath, "Path to the offline state file")

	return fs.Parse(args)
}
