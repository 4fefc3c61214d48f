package mortgage

import (
	"math"
	"testing"

	"realestate/internal/models"
)

// TestSolveAffordabilityNotAffordable covers obligations above the ceiling
func TestSolveAffordabilityNotAffordable(t *testing.T) {
	result := SolveAffordability(5000, 500, 1500, 3.5, 25)
	if !approxEqual(result.MaxAffordableMonthlyPayment, -200, 1e-9) {
		t.Errorf("MaxAffordableMonthlyPayment = %v, want -200", result.MaxAffordableMonthlyPayment)
	}
	if result.MaxAffordablePrice != 0 {
		t.Errorf("MaxAffordablePrice = %v, want 0", result.MaxAffordablePrice)
	}
}

// TestSolveAffordability checks the annuity present value and degenerate cases
func TestSolveAffordability(t *testing.T) {
	tests := []struct {
		name         string
		income       float64
		debts        float64
		expenses     float64
		rate         float64
		years        int
		wantPayment  float64
		wantPrice    float64
		tolerancePct float64
	}{
		{"30 year at 6%", 5000, 500, 0, 6, 30, 1300, 216829.0987, 1e-6},
		{"zero rate", 10000, 0, 0, 0, 30, 3600, 0, 0},
		{"zero term", 10000, 0, 0, 5, 0, 3600, 0, 0},
		{"exactly at ceiling", 5000, 1000, 800, 5, 30, 0, 0, 0},
		{"negative inputs clamp", -100, -50, -50, 5, 30, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SolveAffordability(tt.income, tt.debts, tt.expenses, tt.rate, tt.years)
			if !approxEqual(got.MaxAffordableMonthlyPayment, tt.wantPayment, 1e-6) {
				t.Errorf("MaxAffordableMonthlyPayment = %v, want %v", got.MaxAffordableMonthlyPayment, tt.wantPayment)
			}
			if !approxEqual(got.MaxAffordablePrice, tt.wantPrice, tt.wantPrice*tt.tolerancePct+1e-9) {
				t.Errorf("MaxAffordablePrice = %v, want %v", got.MaxAffordablePrice, tt.wantPrice)
			}
		})
	}
}

// TestAffordabilityRoundTrip verifies the solver inverts MonthlyPayment
func TestAffordabilityRoundTrip(t *testing.T) {
	cases := []struct {
		income float64
		rate   float64
		years  int
	}{
		{8000, 3.5, 25},
		{12000, 6.5, 30},
		{6500, 4.25, 15},
		{25000, 9, 10},
	}

	for _, c := range cases {
		result := SolveAffordability(c.income, 300, 200, c.rate, c.years)
		if result.MaxAffordablePrice <= 0 {
			t.Fatalf("income %v: expected an affordable price", c.income)
		}
		pi := MonthlyPayment(result.MaxAffordablePrice, c.rate, c.years)
		if !approxEqual(pi, result.MaxAffordableMonthlyPayment, 0.01) {
			t.Errorf("income %v rate %v: PI %v, want %v", c.income, c.rate, pi, result.MaxAffordableMonthlyPayment)
		}
	}
}

// TestAffordabilityPolicy verifies the ceiling comes from the policy
func TestAffordabilityPolicy(t *testing.T) {
	calc := NewCalculator(Policy{DebtToIncomeCeiling: 0.43, PMIAnnualRate: 0.005, PMIThreshold: 0.2})
	result := calc.Affordability(models.AffordabilityInputs{MonthlyIncome: 10000, MonthlyDebts: 300}, 6, 30)
	if !approxEqual(result.MaxAffordableMonthlyPayment, 4000, 1e-9) {
		t.Errorf("MaxAffordableMonthlyPayment = %v, want 4000", result.MaxAffordableMonthlyPayment)
	}
}

// TestSolveAffordabilityTermCap verifies oversized terms solve as MaxTermYears
func TestSolveAffordabilityTermCap(t *testing.T) {
	want := SolveAffordability(10000, 500, 0, 6, MaxTermYears).MaxAffordablePrice
	if want <= 0 {
		t.Fatalf("MaxAffordablePrice = %v, want > 0", want)
	}
	for _, years := range []int{MaxTermYears + 1, 1 << 40, math.MaxInt} {
		got := SolveAffordability(10000, 500, 0, 6, years).MaxAffordablePrice
		if got != want {
			t.Errorf("MaxAffordablePrice(%d years) = %v, want %v", years, got, want)
		}
	}
}
