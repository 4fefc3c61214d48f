package mortgage

import (
	"math"

	"realestate/internal/models"
)

// ResolveLoan derives the financed amount, PMI and the monthly escrow items.
// Taxes and insurance are based on the purchase price, so they apply to
// all-cash purchases too.
func (c *Calculator) ResolveLoan(in models.LoanInputs) models.LoanResolution {
	in = Normalize(in)

	res := models.LoanResolution{
		LoanAmount:         math.Max(in.Price-in.DownPayment, 0),
		MonthlyPropertyTax: in.Price * in.PropertyTaxRateAnnualPct / 100 / 12,
		MonthlyInsurance:   in.Price * in.InsuranceRateAnnualPct / 100 / 12,
		HOAMonthly:         in.HOAMonthly,
	}

	if in.Price > 0 {
		res.DownPaymentPct = in.DownPayment / in.Price
	}

	// Strictly below the threshold: exactly 20% down carries no PMI
	if res.DownPaymentPct < c.Policy.PMIThreshold {
		res.PMIMonthly = res.LoanAmount * c.Policy.PMIAnnualRate / 12
	}

	return res
}
