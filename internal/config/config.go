package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"realestate/internal/logging"
	"realestate/internal/models"
	"realestate/internal/services/mortgage"
)

// Store backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig       `toml:"server"`
	Store      StoreConfig        `toml:"store"`
	Cache      CacheConfig        `toml:"cache"`
	Auth       AuthConfig         `toml:"auth"`
	Estimator  EstimatorConfig    `toml:"estimator"`
	Log        logging.Config     `toml:"log"`
	Policy     mortgage.Policy    `toml:"policy"`
	Calculator CalculatorDefaults `toml:"calculator"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	Debug      bool   `toml:"debug"`

	// Directories
	DataDirectory string `toml:"data_directory"`
	// TemplatesDirectory overrides the embedded templates when set
	TemplatesDirectory string `toml:"templates_directory"`
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
	// Password unlocks an encrypted file store without prompting
	Password string `toml:"-"`
}

// CacheConfig configures the result and estimate cache. An empty RedisAddr
// selects the in-process cache.
type CacheConfig struct {
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"-"`
	RedisDB       int           `toml:"redis_db"`
	TTL           time.Duration `toml:"ttl"`
	MaxEntries    int           `toml:"max_entries"`
}

// AuthConfig configures session tokens
type AuthConfig struct {
	JWTSecret string        `toml:"-"`
	Issuer    string        `toml:"issuer"`
	TokenTTL  time.Duration `toml:"token_ttl"`
}

// EstimatorConfig configures the external price model
type EstimatorConfig struct {
	Command string        `toml:"command"`
	Args    []string      `toml:"args"`
	Timeout time.Duration `toml:"timeout"`
	// RateLimit is the number of predictions per client per minute
	RateLimit int `toml:"rate_limit"`
}

// CalculatorDefaults fill listing estimates and blank calculator fields
type CalculatorDefaults struct {
	InterestRatePct    float64 `toml:"interest_rate" json:"interest_rate"`
	TermYears          int     `toml:"term_years" json:"term_years"`
	DownPaymentPct     float64 `toml:"down_payment_pct" json:"down_payment_pct"`
	PropertyTaxRatePct float64 `toml:"property_tax_rate" json:"property_tax_rate"`
	InsuranceRatePct   float64 `toml:"insurance_rate" json:"insurance_rate"`
}

// LoanInputs builds calculator inputs for a purchase at price from the
// defaults. A positive taxRatePct overrides the default property tax rate.
func (d CalculatorDefaults) LoanInputs(price, hoaMonthly, taxRatePct float64) models.LoanInputs {
	if taxRatePct <= 0 {
		taxRatePct = d.PropertyTaxRatePct
	}
	return models.LoanInputs{
		Price:                    price,
		DownPayment:              price * d.DownPaymentPct / 100,
		InterestRateAnnualPct:    d.InterestRatePct,
		TermYears:                d.TermYears,
		PropertyTaxRateAnnualPct: taxRatePct,
		InsuranceRateAnnualPct:   d.InsuranceRatePct,
		HOAMonthly:               hoaMonthly,
	}
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	dataDir := filepath.Join(wd, "data")

	return &Config{
		Server: ServerConfig{
			ListenAddr:    ":8080",
			DataDirectory: dataDir,
		},
		Store: StoreConfig{
			Backend:    BackendFile,
			SQLitePath: filepath.Join(dataDir, "realestate.db"),
		},
		Cache: CacheConfig{
			TTL:        10 * time.Minute,
			MaxEntries: 1024,
		},
		Auth: AuthConfig{
			Issuer:   "realestate",
			TokenTTL: 24 * time.Hour,
		},
		Estimator: EstimatorConfig{
			Timeout:   10 * time.Second,
			RateLimit: 10,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Policy: mortgage.DefaultPolicy(),
		Calculator: CalculatorDefaults{
			InterestRatePct:    6.5,
			TermYears:          30,
			DownPaymentPct:     20,
			PropertyTaxRatePct: 1.1,
			InsuranceRatePct:   0.35,
		},
	}
}

// Load builds configuration from defaults, the TOML file named by
// REALESTATE_CONFIG, then REALESTATE_* environment variables
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("REALESTATE_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.finalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ensureDirectories()
	return cfg, nil
}

// LoadFile overlays a TOML file onto cfg
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown config keys ignored", "file", path, "keys", fmt.Sprint(undecoded))
	}
	return nil
}

// applyEnv overrides settings from the environment
func (c *Config) applyEnv() error {
	if addr := os.Getenv("REALESTATE_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if debug := os.Getenv("REALESTATE_DEBUG"); debug == "true" || debug == "1" {
		c.Server.Debug = true
	}
	if dataDir := os.Getenv("REALESTATE_DATA_DIR"); dataDir != "" {
		c.Server.DataDirectory = dataDir
		c.Store.SQLitePath = filepath.Join(dataDir, "realestate.db")
	}
	if templatesDir := os.Getenv("REALESTATE_TEMPLATES_DIR"); templatesDir != "" {
		c.Server.TemplatesDirectory = templatesDir
	}

	if backend := os.Getenv("REALESTATE_STORE_BACKEND"); backend != "" {
		c.Store.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv("REALESTATE_SQLITE_PATH"); path != "" {
		c.Store.SQLitePath = path
	}
	c.Store.Password = os.Getenv("REALESTATE_STORE_PASSWORD")

	if addr := os.Getenv("REALESTATE_REDIS_ADDR"); addr != "" {
		c.Cache.RedisAddr = addr
	}
	c.Cache.RedisPassword = os.Getenv("REALESTATE_REDIS_PASSWORD")

	if secret := os.Getenv("REALESTATE_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if cmd := os.Getenv("REALESTATE_ESTIMATOR_CMD"); cmd != "" {
		c.Estimator.Command = cmd
	}
	if level := os.Getenv("REALESTATE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("REALESTATE_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"REALESTATE_CACHE_TTL", &c.Cache.TTL},
		{"REALESTATE_TOKEN_TTL", &c.Auth.TokenTTL},
		{"REALESTATE_ESTIMATOR_TIMEOUT", &c.Estimator.Timeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("REALESTATE_PREDICT_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REALESTATE_PREDICT_RATE_LIMIT: %w", err)
		}
		c.Estimator.RateLimit = n
	}
	return nil
}

// finalize fills values that have no static default
func (c *Config) finalize() {
	c.Policy = c.Policy.Normalized()
	if c.Auth.JWTSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err == nil {
			c.Auth.JWTSecret = hex.EncodeToString(buf)
		}
		slog.Warn("REALESTATE_JWT_SECRET not set; sessions will not survive a restart")
	}
}

// Validate checks settings that cannot be corrected silently
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Calculator.TermYears <= 0 {
		return fmt.Errorf("calculator term_years must be positive")
	}
	if c.Calculator.TermYears > mortgage.MaxTermYears {
		return fmt.Errorf("calculator term_years must be at most %d", mortgage.MaxTermYears)
	}
	if c.Calculator.DownPaymentPct < 0 || c.Calculator.DownPaymentPct > 100 {
		return fmt.Errorf("calculator down_payment_pct must be between 0 and 100")
	}
	if c.Estimator.RateLimit < 0 {
		return fmt.Errorf("estimator rate_limit must not be negative")
	}
	return nil
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	dirs := []string{c.Server.DataDirectory}
	if c.Store.Backend == BackendSQLite {
		dirs = append(dirs, filepath.Dir(c.Store.SQLitePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Warn("could not create directory", "dir", dir, "error", err)
		}
	}
}
