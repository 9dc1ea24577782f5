package config

import (
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	ContractID string `env:"REGISTRY_CONTRACT_ID"`
	SigningKey string `env:"REGISTRY_SIGNING_KEY"`
	Endpoint   string `env:"REGISTRY_ENDPOINT"`
	GasPrice   uint64 `env:"REGISTRY_GAS_PRICE" envDefault:"1"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	PendingTTL time.Duration `env:"PENDING_TTL" envDefault:"5m"`

	RedisAddr    string `env:"REDIS_ADDR"`
	CRDBDSN      string `env:"CRDB_DSN"`
	MongoURI     string `env:"MONGO_URI"`
	RabbitURL    string `env:"RABBIT_URL"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"5s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and then the process environment. Each
// command then checks the settings it needs with a Require method.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	return &cfg, nil
}

// RequireRegistry checks the settings the web command cannot start without.
func (c *Config) RequireRegistry() error {
	missing := missingVars(map[string]string{
		"REGISTRY_CONTRACT_ID": c.ContractID,
		"REGISTRY_SIGNING_KEY": c.SigningKey,
		"REGISTRY_ENDPOINT":    c.Endpoint,
	})
	if len(missing) > 0 {
		return errors.Newf("missing required settings: %s", strings.Join(missing, ", "))
	}
	_, err := c.SigningKeyBytes()
	return err
}

// RequireRelay checks the settings of the outbox publisher.
func (c *Config) RequireRelay() error {
	missing := missingVars(map[string]string{
		"CRDB_DSN":   c.CRDBDSN,
		"RABBIT_URL": c.RabbitURL,
	})
	if len(missing) > 0 {
		return errors.Newf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func missingVars(vals map[string]string) []string {
	var missing []string
	for name, v := range vals {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// SigningKeyBytes decodes the hex signing key, with or without a 0x prefix.
func (c *Config) SigningKeyBytes() ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(c.SigningKey, "0x"), "0X")
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(err, "REGISTRY_SIGNING_KEY is not hex")
	}
	if len(key) == 0 {
		return nil, errors.New("REGISTRY_SIGNING_KEY is empty")
	}
	return key, nil
}
