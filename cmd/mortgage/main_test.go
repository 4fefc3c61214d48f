package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REALESTATE_CONFIG", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPayment(t *testing.T) {
	out, err := execute(t, "payment", "--price", "400000", "--down", "80000", "--rate", "6", "--term", "30", "--breakdown")
	require.NoError(t, err)

	assert.Contains(t, out, "MORTGAGE PAYMENT")
	assert.Contains(t, out, "$320,000.00")
	assert.Contains(t, out, "$1,918.56")
	assert.Contains(t, out, "Lifetime cost")
	assert.Contains(t, out, "Principal")
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no price", []string{"payment"}, "--price is required"},
		{"down above price", []string{"payment", "--price", "100", "--down", "200"}, "down payment"},
		{"zero term", []string{"payment", "--price", "100000", "--term", "0"}, "--term must be positive"},
		{"term above cap", []string{"payment", "--price", "100000", "--term", "51"}, "--term must be at most 50"},
		{"term overflows period count", []string{"schedule", "--price", "100000", "--term", "768614336404564651"}, "--term must be at most 50"},
		{"negative hoa", []string{"payment", "--price", "100000", "--hoa", "-5"}, "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSchedule(t *testing.T) {
	out, err := execute(t, "schedule", "--price", "120000", "--down", "20000", "--rate", "5", "--term", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Year")
	assert.Contains(t, out, "AMORTIZATION")
	assert.Contains(t, out, "2y")

	out, err = execute(t, "schedule", "--price", "120000", "--down", "20000", "--rate", "5", "--term", "1", "--monthly")
	require.NoError(t, err)
	assert.Contains(t, out, " 12 ")
	assert.NotContains(t, out, "Year")

	out, err = execute(t, "schedule", "--price", "100000", "--down", "100000")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to amortize")

	out, err = execute(t, "schedule", "--price", "100000", "--down", "20000", "--rate", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "not amortized")
	assert.NotContains(t, out, "Nothing to amortize")
}

func TestAfford(t *testing.T) {
	out, err := execute(t, "afford", "--income", "10000", "--debts", "500", "--rate", "6", "--term", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Max home price")

	out, err = execute(t, "afford", "--income", "1000", "--debts", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "no room")

	_, err = execute(t, "afford")
	assert.ErrorContains(t, err, "--income is required")

	_, err = execute(t, "afford", "--income", "10000", "--term", "20000")
	assert.ErrorContains(t, err, "--term must be at most 50")
}

func TestInvest(t *testing.T) {
	out, err := execute(t, "invest", "--price", "200000", "--rent", "2000", "--vacancy", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Cap rate")
	assert.Contains(t, out, "yes")

	_, err = execute(t, "invest", "--price", "200000")
	assert.ErrorContains(t, err, "--rent is required")
}

func TestConfigFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realestate.toml")
	require.NoError(t, os.WriteFile(path, []byte("[calculator]\ninterest_rate = 6\nterm_years = 30\ndown_payment_pct = 50\n"), 0o600))

	out, err := execute(t, "payment", "--config", path, "--price", "240000", "--tax-rate", "0.0001", "--insurance-rate", "0")
	require.NoError(t, err)
	// 120,000 over 360 months at 6%
	assert.Contains(t, out, "$719.46")
}
