package mortgage

import (
	"math"
	"testing"

	"realestate/internal/models"
)

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func standardLoan() models.LoanInputs {
	return models.LoanInputs{
		Price:                    300000,
		DownPayment:              60000,
		InterestRateAnnualPct:    3.5,
		TermYears:                25,
		PropertyTaxRateAnnualPct: 1.2,
		InsuranceRateAnnualPct:   0.5,
	}
}

// TestResolveLoanScenarios covers the 20% down payment boundary
func TestResolveLoanScenarios(t *testing.T) {
	t.Run("twenty percent down has no PMI", func(t *testing.T) {
		res := ResolveLoan(standardLoan())
		if res.LoanAmount != 240000 {
			t.Errorf("LoanAmount = %v, want 240000", res.LoanAmount)
		}
		if res.PMIMonthly != 0 {
			t.Errorf("PMIMonthly = %v, want 0", res.PMIMonthly)
		}
		if res.DownPaymentPct != 0.20 {
			t.Errorf("DownPaymentPct = %v, want 0.20", res.DownPaymentPct)
		}
	})

	t.Run("ten percent down carries PMI", func(t *testing.T) {
		in := standardLoan()
		in.DownPayment = 30000
		res := ResolveLoan(in)
		if res.LoanAmount != 270000 {
			t.Errorf("LoanAmount = %v, want 270000", res.LoanAmount)
		}
		if !approxEqual(res.PMIMonthly, 112.50, 1e-9) {
			t.Errorf("PMIMonthly = %v, want 112.50", res.PMIMonthly)
		}
	})

	t.Run("just under twenty percent carries PMI", func(t *testing.T) {
		in := standardLoan()
		in.DownPayment = 59999.99
		res := ResolveLoan(in)
		if res.PMIMonthly <= 0 {
			t.Errorf("PMIMonthly = %v, want > 0", res.PMIMonthly)
		}
	})

	t.Run("zero price does not divide by zero", func(t *testing.T) {
		res := ResolveLoan(models.LoanInputs{TermYears: 30, InterestRateAnnualPct: 5})
		if res.DownPaymentPct != 0 || res.LoanAmount != 0 || res.PMIMonthly != 0 {
			t.Errorf("unexpected resolution for zero price: %+v", res)
		}
	})

	t.Run("escrow is based on price for all-cash purchases", func(t *testing.T) {
		in := standardLoan()
		in.DownPayment = in.Price
		res := ResolveLoan(in)
		if res.LoanAmount != 0 {
			t.Errorf("LoanAmount = %v, want 0", res.LoanAmount)
		}
		if !approxEqual(res.MonthlyPropertyTax, 300, 1e-9) {
			t.Errorf("MonthlyPropertyTax = %v, want 300", res.MonthlyPropertyTax)
		}
		if !approxEqual(res.MonthlyInsurance, 125, 1e-9) {
			t.Errorf("MonthlyInsurance = %v, want 125", res.MonthlyInsurance)
		}
	})

	t.Run("down payment above price is clamped", func(t *testing.T) {
		in := standardLoan()
		in.DownPayment = 500000
		res := ResolveLoan(in)
		if res.LoanAmount != 0 || res.DownPaymentPct != 1 {
			t.Errorf("unexpected resolution: %+v", res)
		}
	})
}

// TestResolveLoanPolicy verifies a custom PMI policy is honored
func TestResolveLoanPolicy(t *testing.T) {
	calc := NewCalculator(Policy{DebtToIncomeCeiling: 0.43, PMIAnnualRate: 0.01, PMIThreshold: 0.10})

	in := standardLoan()
	in.DownPayment = 30000 // exactly 10%
	if res := calc.ResolveLoan(in); res.PMIMonthly != 0 {
		t.Errorf("PMIMonthly at threshold = %v, want 0", res.PMIMonthly)
	}

	in.DownPayment = 15000
	res := calc.ResolveLoan(in)
	if !approxEqual(res.PMIMonthly, 285000*0.01/12, 1e-9) {
		t.Errorf("PMIMonthly = %v, want %v", res.PMIMonthly, 285000*0.01/12)
	}
}

// TestPolicyNormalized verifies invalid policy values fall back to defaults
func TestPolicyNormalized(t *testing.T) {
	p := Policy{DebtToIncomeCeiling: -1, PMIAnnualRate: math.NaN(), PMIThreshold: 2}.Normalized()
	if p != DefaultPolicy() {
		t.Errorf("Normalized() = %+v, want defaults", p)
	}

	custom := Policy{DebtToIncomeCeiling: 0.43, PMIAnnualRate: 0, PMIThreshold: 0.1}
	if got := custom.Normalized(); got != custom {
		t.Errorf("Normalized() changed a valid policy: %+v", got)
	}
}

// TestMonthlyPayment checks the annuity formula and its degenerate cases
func TestMonthlyPayment(t *testing.T) {
	tests := []struct {
		name     string
		loan     float64
		rate     float64
		years    int
		expected float64
	}{
		{"25 year at 3.5%", 240000, 3.5, 25, 1201.4966},
		{"30 year at 6%", 200000, 6, 30, 1199.1011},
		{"zero loan", 0, 3.5, 25, 0},
		{"zero rate", 240000, 0, 25, 0},
		{"negative rate", 240000, -2, 25, 0},
		{"zero term", 240000, 3.5, 0, 0},
		{"NaN loan", math.NaN(), 3.5, 25, 0},
		{"infinite rate", 240000, math.Inf(1), 25, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyPayment(tt.loan, tt.rate, tt.years)
			if !approxEqual(got, tt.expected, 1e-4) {
				t.Errorf("MonthlyPayment(%v, %v, %v) = %v, want %v", tt.loan, tt.rate, tt.years, got, tt.expected)
			}
		})
	}

	if got := MonthlyPayment(0, 3.5, 25); got != 0 {
		t.Errorf("zero loan must be exactly 0, got %v", got)
	}
	if got := MonthlyPayment(240000, 0, 25); got != 0 {
		t.Errorf("zero rate must be exactly 0, got %v", got)
	}
}

// TestSummarize verifies the total monthly payment includes every component
func TestSummarize(t *testing.T) {
	in := standardLoan()
	in.DownPayment = 30000
	in.HOAMonthly = 150
	in.ExtraMonthlyPayment = 200

	res := ResolveLoan(in)
	pi := MonthlyPayment(res.LoanAmount, in.InterestRateAnnualPct, in.TermYears)
	s := Summarize(res, pi, in.ExtraMonthlyPayment, in.TermYears)

	want := pi + 112.5 + 300 + 125 + 150 + 200
	if !approxEqual(s.TotalMonthlyPayment, want, 1e-6) {
		t.Errorf("TotalMonthlyPayment = %v, want %v", s.TotalMonthlyPayment, want)
	}
	if s.NumberOfPayments != 300 {
		t.Errorf("NumberOfPayments = %d, want 300", s.NumberOfPayments)
	}
	if !approxEqual(s.TotalPaid, want*300, 1e-6) {
		t.Errorf("TotalPaid = %v, want %v", s.TotalPaid, want*300)
	}
	if !approxEqual(s.TotalInterest, want*300-270000, 1e-6) {
		t.Errorf("TotalInterest = %v, want %v", s.TotalInterest, want*300-270000)
	}
}

// TestNormalize verifies invalid inputs are clamped instead of rejected
func TestNormalize(t *testing.T) {
	in := Normalize(models.LoanInputs{
		Price:                    -100,
		DownPayment:              math.NaN(),
		InterestRateAnnualPct:    math.Inf(-1),
		TermYears:                -5,
		PropertyTaxRateAnnualPct: -1,
		InsuranceRateAnnualPct:   math.Inf(1),
		HOAMonthly:               -50,
		ExtraMonthlyPayment:      -10,
	})
	if in != (models.LoanInputs{}) {
		t.Errorf("Normalize() = %+v, want zero value", in)
	}
}

// TestCalculateDeterministic verifies repeated runs are identical
func TestCalculateDeterministic(t *testing.T) {
	in := standardLoan()
	in.DownPayment = 25000
	in.ExtraMonthlyPayment = 150

	first := Calculate(in)
	for i := 0; i < 5; i++ {
		again := Calculate(in)
		if again.Payment != first.Payment || again.Resolution != first.Resolution {
			t.Fatalf("run %d differs from first run", i)
		}
		if len(again.Schedule) != len(first.Schedule) {
			t.Fatalf("run %d schedule length %d, want %d", i, len(again.Schedule), len(first.Schedule))
		}
		for j := range first.Schedule {
			if again.Schedule[j] != first.Schedule[j] {
				t.Fatalf("run %d entry %d differs", i, j)
			}
		}
	}
}

// TestCalculateExtraPaymentSavings verifies savings are reported against the baseline
func TestCalculateExtraPaymentSavings(t *testing.T) {
	in := standardLoan()
	base := Calculate(in)
	if base.MonthsSaved != 0 || base.InterestSaved != 0 {
		t.Errorf("no extra payment should save nothing, got %d months, %v interest", base.MonthsSaved, base.InterestSaved)
	}

	in.ExtraMonthlyPayment = 300
	result := Calculate(in)
	if result.MonthsSaved <= 0 {
		t.Errorf("MonthsSaved = %d, want > 0", result.MonthsSaved)
	}
	if result.InterestSaved <= 0 {
		t.Errorf("InterestSaved = %v, want > 0", result.InterestSaved)
	}
	if result.PayoffPeriods+result.MonthsSaved != base.PayoffPeriods {
		t.Errorf("PayoffPeriods %d + MonthsSaved %d != baseline %d", result.PayoffPeriods, result.MonthsSaved, base.PayoffPeriods)
	}
	if !approxEqual(base.ScheduledInterest-result.ScheduledInterest, result.InterestSaved, 1e-6) {
		t.Errorf("InterestSaved = %v, want %v", result.InterestSaved, base.ScheduledInterest-result.ScheduledInterest)
	}
}

// TestCalculateTermCap verifies oversized terms are clamped to MaxTermYears
// instead of overflowing the period count
func TestCalculateTermCap(t *testing.T) {
	maxPeriods := MaxTermYears * 12

	tests := []struct {
		name  string
		years int
	}{
		{"at the cap", MaxTermYears},
		{"above the cap", 20000},
		{"period count overflow", math.MaxInt64/12 + 1},
		{"max int", math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := standardLoan()
			in.TermYears = tt.years

			result := Calculate(in)
			if result.Inputs.TermYears != MaxTermYears {
				t.Errorf("TermYears = %d, want %d", result.Inputs.TermYears, MaxTermYears)
			}
			if result.Payment.NumberOfPayments != maxPeriods {
				t.Errorf("NumberOfPayments = %d, want %d", result.Payment.NumberOfPayments, maxPeriods)
			}
			pi := result.Payment.PrincipalAndInterest
			if math.IsNaN(pi) || math.IsInf(pi, 0) || pi <= 0 {
				t.Fatalf("PrincipalAndInterest = %v, want a positive finite value", pi)
			}
			if firstInterest := result.Resolution.LoanAmount * monthlyRate(in.InterestRateAnnualPct); pi <= firstInterest {
				t.Errorf("PrincipalAndInterest = %v, want above the first month's interest %v", pi, firstInterest)
			}
			if n := len(result.Schedule); n == 0 || n > maxPeriods {
				t.Fatalf("schedule length = %d, want 1..%d", n, maxPeriods)
			}
			if last := result.Schedule[len(result.Schedule)-1]; last.RemainingBalance != 0 {
				t.Errorf("final balance = %v, want 0", last.RemainingBalance)
			}
			if !result.FullyAmortized {
				t.Error("FullyAmortized = false, want true")
			}
		})
	}
}

// TestMonthlyPaymentLongTerms verifies the payment approaches pure interest
// as the term grows without losing precision
func TestMonthlyPaymentLongTerms(t *testing.T) {
	interestOnly := 240000 * monthlyRate(6)
	for _, years := range []int{30, MaxTermYears, 1000, math.MaxInt} {
		pi := MonthlyPayment(240000, 6, years)
		if math.IsNaN(pi) || math.IsInf(pi, 0) {
			t.Fatalf("MonthlyPayment(%d years) = %v", years, pi)
		}
		if pi <= interestOnly {
			t.Errorf("MonthlyPayment(%d years) = %v, want above %v", years, pi, interestOnly)
		}
	}
	if got, want := MonthlyPayment(240000, 6, 1000), MonthlyPayment(240000, 6, MaxTermYears); got != want {
		t.Errorf("MonthlyPayment beyond the cap = %v, want %v", got, want)
	}
}

// TestCalculateFullyAmortized covers loans whose schedule cannot retire the balance
func TestCalculateFullyAmortized(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		extra float64
		down  float64
		want  bool
		empty bool
	}{
		{"standard loan", 3.5, 0, 60000, true, false},
		{"zero rate without extra", 0, 0, 60000, false, true},
		{"zero rate with extra", 0, 2000, 60000, true, false},
		{"nothing borrowed", 3.5, 0, 300000, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := standardLoan()
			in.InterestRateAnnualPct = tt.rate
			in.ExtraMonthlyPayment = tt.extra
			in.DownPayment = tt.down

			result := Calculate(in)
			if result.FullyAmortized != tt.want {
				t.Errorf("FullyAmortized = %v, want %v", result.FullyAmortized, tt.want)
			}
			if (len(result.Schedule) == 0) != tt.empty {
				t.Errorf("schedule length = %d, want empty = %v", len(result.Schedule), tt.empty)
			}
		})
	}
}
