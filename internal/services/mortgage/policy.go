package mortgage

// Lending policy defaults. These match the figures the marketplace has
// always quoted and are overridable through configuration.
const (
	DefaultDebtToIncomeCeiling = 0.36
	DefaultPMIAnnualRate       = 0.005
	DefaultPMIThreshold        = 0.20
)

// Policy holds the lending constants used by the calculator
type Policy struct {
	// DebtToIncomeCeiling is the fraction of gross monthly income that may go
	// to housing plus existing obligations.
	DebtToIncomeCeiling float64 `json:"debt_to_income_ceiling" toml:"debt_to_income_ceiling"`

	// PMIAnnualRate is charged on the loan amount, per year.
	PMIAnnualRate float64 `json:"pmi_annual_rate" toml:"pmi_annual_rate"`

	// PMIThreshold is the down payment fraction at or above which no PMI
	// is charged.
	PMIThreshold float64 `json:"pmi_threshold" toml:"pmi_threshold"`
}

// DefaultPolicy returns the standard lending policy
func DefaultPolicy() Policy {
	return Policy{
		DebtToIncomeCeiling: DefaultDebtToIncomeCeiling,
		PMIAnnualRate:       DefaultPMIAnnualRate,
		PMIThreshold:        DefaultPMIThreshold,
	}
}

// Normalized replaces out-of-range values with the defaults
func (p Policy) Normalized() Policy {
	d := DefaultPolicy()
	if !validFraction(p.DebtToIncomeCeiling) || p.DebtToIncomeCeiling == 0 {
		p.DebtToIncomeCeiling = d.DebtToIncomeCeiling
	}
	if !validFraction(p.PMIAnnualRate) {
		p.PMIAnnualRate = d.PMIAnnualRate
	}
	if !validFraction(p.PMIThreshold) || p.PMIThreshold == 0 {
		p.PMIThreshold = d.PMIThreshold
	}
	return p
}

func validFraction(v float64) bool {
	return finite(v) && v >= 0 && v <= 1
}
