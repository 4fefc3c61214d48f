package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/internal/services/mortgage"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REALESTATE_CONFIG", "")
	t.Setenv("REALESTATE_DATA_DIR", dir)
	t.Setenv("REALESTATE_JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, dir, cfg.Server.DataDirectory)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, mortgage.DefaultPolicy(), cfg.Policy)
	assert.Len(t, cfg.Auth.JWTSecret, 64, "a random secret is generated")
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "realestate.toml")
	content := `
[server]
listen_addr = ":9000"

[store]
backend = "sqlite"

[cache]
ttl = "2m"

[policy]
debt_to_income_ceiling = 0.43
pmi_annual_rate = 0.007
pmi_threshold = 0.20

[calculator]
interest_rate = 7.25
term_years = 15
down_payment_pct = 10
property_tax_rate = 1.5
insurance_rate = 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("REALESTATE_CONFIG", path)
	t.Setenv("REALESTATE_DATA_DIR", dir)
	t.Setenv("REALESTATE_LISTEN_ADDR", ":9100")
	t.Setenv("REALESTATE_JWT_SECRET", "from-env")
	t.Setenv("REALESTATE_ESTIMATOR_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.ListenAddr, "env wins over file")
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "realestate.db"), cfg.Store.SQLitePath)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 3*time.Second, cfg.Estimator.Timeout)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 0.43, cfg.Policy.DebtToIncomeCeiling)
	assert.Equal(t, 0.007, cfg.Policy.PMIAnnualRate)
	assert.Equal(t, 15, cfg.Calculator.TermYears)
}

func TestInvalidPolicyFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "realestate.toml")
	require.NoError(t, os.WriteFile(path, []byte("[policy]\ndebt_to_income_ceiling = 4.0\n"), 0o644))

	t.Setenv("REALESTATE_CONFIG", path)
	t.Setenv("REALESTATE_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, mortgage.DefaultDebtToIncomeCeiling, cfg.Policy.DebtToIncomeCeiling)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing file", map[string]string{"REALESTATE_CONFIG": filepath.Join(dir, "nope.toml")}},
		{"bad backend", map[string]string{"REALESTATE_STORE_BACKEND": "postgres"}},
		{"bad duration", map[string]string{"REALESTATE_CACHE_TTL": "soon"}},
		{"bad rate limit", map[string]string{"REALESTATE_PREDICT_RATE_LIMIT": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REALESTATE_CONFIG", "")
			t.Setenv("REALESTATE_DATA_DIR", dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateTermYears(t *testing.T) {
	tests := []struct {
		name    string
		years   int
		wantErr string
	}{
		{"default", 30, ""},
		{"at cap", mortgage.MaxTermYears, ""},
		{"zero", 0, "must be positive"},
		{"above cap", mortgage.MaxTermYears + 1, "must be at most 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Calculator.TermYears = tt.years
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCalculatorDefaultsLoanInputs(t *testing.T) {
	d := DefaultConfig().Calculator

	in := d.LoanInputs(400000, 150, 0)
	assert.Equal(t, 80000.0, in.DownPayment)
	assert.Equal(t, 6.5, in.InterestRateAnnualPct)
	assert.Equal(t, 30, in.TermYears)
	assert.Equal(t, 1.1, in.PropertyTaxRateAnnualPct)
	assert.Equal(t, 150.0, in.HOAMonthly)

	in = d.LoanInputs(400000, 0, 2.0)
	assert.Equal(t, 2.0, in.PropertyTaxRateAnnualPct, "listing tax rate wins")
}
