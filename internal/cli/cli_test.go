package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/internal/models"
	"realestate/internal/services/mortgage"
)

func TestFormatMonths(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0m"},
		{7, "7m"},
		{12, "1y"},
		{125, "10y 5m"},
		{360, "30y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMonths(tt.n), "FormatMonths(%d)", tt.n)
	}
}

func TestFormatRates(t *testing.T) {
	assert.Equal(t, "20.0%", FormatPercent(0.2))
	assert.Equal(t, "6.50%", FormatRate(6.5))
	assert.Equal(t, "$1,234.50", FormatMoney(1234.5))
	assert.Equal(t, "$312,000", FormatWhole(311999.6))
}

func TestRenderTableAlignment(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Name", "Amount"},
		Rows: [][]string{
			{"a", "1"},
			Separator,
			{"longer", "12345"},
		},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)
	for _, l := range lines[1:] {
		assert.Equal(t, len([]rune(lines[0])), len([]rune(l)), "ragged line %q", l)
	}
	assert.Contains(t, out, "│ a      │      1 │")
	assert.Contains(t, out, "├────────┼────────┤")
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Empty(t, RenderTable(Table{}))
}

func TestRenderSparkline(t *testing.T) {
	assert.Equal(t, "", RenderSparkline(nil))
	assert.Equal(t, "▁▄█", RenderSparkline([]float64{0, 50, 100}))
	assert.Equal(t, "▁▁", RenderSparkline([]float64{0, 0}))
}

func TestScheduleTableYearly(t *testing.T) {
	res := mortgage.Default().Calculate(models.LoanInputs{
		Price:                 120000,
		DownPayment:           20000,
		InterestRateAnnualPct: 5,
		TermYears:             2,
	})

	monthly := ScheduleTable(res.Schedule, false)
	assert.Len(t, monthly.Rows, 24)

	yearly := ScheduleTable(res.Schedule, true)
	require.Len(t, yearly.Rows, 2)
	assert.Equal(t, "1", yearly.Rows[0][0])
	assert.Equal(t, "2", yearly.Rows[1][0])
	assert.Equal(t, "$0.00", yearly.Rows[1][3])
}

func TestPaymentTableExtraPayments(t *testing.T) {
	in := models.LoanInputs{
		Price:                 300000,
		DownPayment:           60000,
		InterestRateAnnualPct: 6,
		TermYears:             30,
	}
	plain := RenderTable(PaymentTable(mortgage.Default().Calculate(in)))
	assert.NotContains(t, plain, "Time saved")

	in.ExtraMonthlyPayment = 500
	extra := RenderTable(PaymentTable(mortgage.Default().Calculate(in)))
	assert.Contains(t, extra, "Extra principal")
	assert.Contains(t, extra, "Time saved")
}

func TestBreakdownLines(t *testing.T) {
	out := BreakdownLines(models.PaymentBreakdown{
		models.CategoryPrincipal: 750,
		models.CategoryInterest:  250,
	}, 20)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Principal")
	assert.Contains(t, lines[0], "75.0%")
	assert.Contains(t, lines[1], "25.0%")
}

func TestBalanceSparkline(t *testing.T) {
	entries := make([]models.AmortizationEntry, 100)
	for i := range entries {
		entries[i].RemainingBalance = float64(100 - i)
	}
	line := BalanceSparkline(entries, 10)
	assert.Len(t, []rune(line), 10)
	assert.Empty(t, BalanceSparkline(nil, 10))
}
