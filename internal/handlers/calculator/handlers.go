package calculator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"maps"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"realestate/internal/config"
	apphttp "realestate/internal/http"
	"realestate/internal/models"
	"realestate/internal/observability"
	"realestate/internal/services/cache"
	"realestate/internal/services/investment"
	"realestate/internal/services/mortgage"
	"realestate/internal/templates"
)

// Calculation kinds, used as cache key prefixes and metric labels
const (
	KindMortgage      = "mortgage"
	KindAffordability = "affordability"
	KindInvestment    = "investment"
)

var (
	renderer    *templates.Renderer
	calc        *mortgage.Calculator
	analyzer    *investment.Analyzer
	resultCache cache.Cache
	cacheTTL    time.Duration
	metrics     *observability.Metrics
	defaults    config.CalculatorDefaults
)

// Initialize sets up the calculator package with required dependencies.
// rc and m may be nil.
func Initialize(r *templates.Renderer, c *mortgage.Calculator, rc cache.Cache, m *observability.Metrics, cfg *config.Config) {
	renderer = r
	calc = c
	analyzer = investment.New(c)
	resultCache = rc
	metrics = m
	cacheTTL = cfg.Cache.TTL
	defaults = cfg.Calculator
}

// RegisterRoutes registers all calculator routes
func RegisterRoutes(r chi.Router) {
	r.Get("/calculator", handleCalculatorPage)
	r.Post("/calculator/schedule", handleSchedulePartial)

	r.Route("/api/calculator", func(r chi.Router) {
		r.Post("/mortgage", handleMortgage)
		r.Post("/affordability", handleAffordability)
		r.Post("/investment", handleInvestment)
	})
}

// AffordabilityRequest carries household figures plus loan terms.
// Omitted terms fall back to the configured defaults.
type AffordabilityRequest struct {
	models.AffordabilityInputs
	InterestRateAnnualPct *float64 `json:"interest_rate,omitempty"`
	TermYears             *int     `json:"term_years,omitempty"`
}

// AffordabilityResponse echoes the terms used alongside the result
type AffordabilityResponse struct {
	models.AffordabilityResult
	InterestRateAnnualPct float64 `json:"interest_rate"`
	TermYears             int     `json:"term_years"`
}

// inputsHash generates a hash of the inputs for the cache key
func inputsHash(kind string, in any) string {
	data, err := json.Marshal(in)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return "calc:" + kind + ":" + hex.EncodeToString(hash[:16])
}

// runWithCache returns a cached result for in when present, otherwise runs
// compute and stores its result. Results are deterministic per input.
func runWithCache[T any](ctx context.Context, kind string, in any, compute func() T) T {
	key := inputsHash(kind, in)
	if resultCache != nil && key != "" {
		if raw, ok := resultCache.Get(ctx, key); ok {
			var cached T
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				observe(kind, true)
				return cached
			}
			slog.Warn("discarding unreadable cached result", "key", key)
		}
	}

	result := compute()
	observe(kind, false)

	if resultCache != nil && key != "" {
		if data, err := json.Marshal(result); err == nil {
			if err := resultCache.Set(ctx, key, string(data), cacheTTL); err != nil {
				slog.Warn("caching calculator result", "kind", kind, "error", err)
			}
		}
	}
	return result
}

func observe(kind string, cached bool) {
	if metrics != nil {
		metrics.ObserveCalculation(kind, cached)
	}
}

// Calculate runs the mortgage engine through the result cache
func Calculate(ctx context.Context, in models.LoanInputs) *models.MortgageResult {
	return runWithCache(ctx, KindMortgage, in, func() *models.MortgageResult {
		return RoundResult(calc.Calculate(in))
	})
}

func handleMortgage(w http.ResponseWriter, r *http.Request) {
	var in models.LoanInputs
	if err := apphttp.DecodeJSON(r, &in); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.TermYears == 0 {
		in.TermYears = defaults.TermYears
	}
	if err := ValidateLoan(in); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	apphttp.WriteJSON(w, http.StatusOK, Calculate(r.Context(), in))
}

func handleAffordability(w http.ResponseWriter, r *http.Request) {
	var req AffordabilityRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	rate := defaults.InterestRatePct
	if req.InterestRateAnnualPct != nil {
		rate = *req.InterestRateAnnualPct
	}
	term := defaults.TermYears
	if req.TermYears != nil {
		term = *req.TermYears
	}

	in := req.AffordabilityInputs
	if err := checkAmounts(map[string]float64{
		"monthly_income":   in.MonthlyIncome,
		"monthly_debts":    in.MonthlyDebts,
		"monthly_expenses": in.MonthlyExpenses,
		"interest_rate":    rate,
	}); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	if term <= 0 {
		apphttp.ErrorJSON(w, "term_years must be positive", http.StatusBadRequest)
		return
	}
	if term > mortgage.MaxTermYears {
		apphttp.ErrorJSON(w, fmt.Sprintf("term_years must be at most %d", mortgage.MaxTermYears), http.StatusBadRequest)
		return
	}

	key := struct {
		models.AffordabilityInputs
		Rate float64
		Term int
	}{in, rate, term}
	resp := runWithCache(r.Context(), KindAffordability, key, func() AffordabilityResponse {
		res := calc.Affordability(in, rate, term)
		return AffordabilityResponse{
			AffordabilityResult: models.AffordabilityResult{
				MaxAffordableMonthlyPayment: roundMoney(res.MaxAffordableMonthlyPayment),
				MaxAffordablePrice:          roundMoney(res.MaxAffordablePrice),
			},
			InterestRateAnnualPct: rate,
			TermYears:             term,
		}
	})
	apphttp.WriteJSON(w, http.StatusOK, resp)
}

func handleInvestment(w http.ResponseWriter, r *http.Request) {
	var in models.InvestmentInputs
	if err := apphttp.DecodeJSON(r, &in); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.Loan.TermYears == 0 {
		in.Loan.TermYears = defaults.TermYears
	}
	if err := ValidateLoan(in.Loan); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := checkAmounts(map[string]float64{
		"monthly_rent":               in.MonthlyRent,
		"vacancy_rate":               in.VacancyRatePct,
		"monthly_operating_expenses": in.MonthlyOperatingExpenses,
		"closing_costs":              in.ClosingCosts,
	}); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.VacancyRatePct > 100 {
		apphttp.ErrorJSON(w, "vacancy_rate must be at most 100", http.StatusBadRequest)
		return
	}

	result := runWithCache(r.Context(), KindInvestment, in, func() models.InvestmentResult {
		return RoundInvestment(analyzer.Analyze(in))
	})
	apphttp.WriteJSON(w, http.StatusOK, result)
}

func handleCalculatorPage(w http.ResponseWriter, r *http.Request) {
	base := defaults.LoanInputs(0, 0, 0)
	pageData := map[string]interface{}{
		"Title":  "Mortgage calculator",
		"Inputs": base,
	}

	// Without a price there is nothing to compute yet
	if r.FormValue("price") != "" {
		in, err := ParseLoanForm(r, base)
		if err != nil {
			pageData["Error"] = err.Error()
		} else {
			pageData["Inputs"] = in
			pageData["Result"] = Calculate(r.Context(), in)
		}
	}

	apphttp.RenderTemplate(w, renderer, "calculator.html", pageData)
}

func handleSchedulePartial(w http.ResponseWriter, r *http.Request) {
	in, err := ParseLoanForm(r, defaults.LoanInputs(0, 0, 0))
	if err != nil {
		renderError(w, err.Error(), http.StatusBadRequest)
		return
	}

	partialData := map[string]interface{}{
		"Inputs": in,
		"Result": Calculate(r.Context(), in),
	}
	if renderer == nil {
		apphttp.RenderPartial(w, nil, "schedule.html", partialData)
		return
	}
	html, err := renderer.RenderToString("payment.html", partialData)
	if err != nil {
		renderError(w, "could not render payment summary", http.StatusInternalServerError)
		return
	}
	schedule, err := renderer.RenderToString("schedule.html", partialData)
	if err != nil {
		renderError(w, "could not render schedule", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html + schedule))
}

// renderError renders an HTML error fragment for HTMX requests
func renderError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `<div class="error"><strong>Error</strong><p>%s</p></div>`, template.HTMLEscapeString(message))
}

// ParseLoanForm reads loan inputs from form or query values. Missing
// fields keep their value from base; a down payment percentage may be
// given instead of an amount.
func ParseLoanForm(r *http.Request, base models.LoanInputs) (models.LoanInputs, error) {
	in := base
	var err error

	floats := []struct {
		key string
		dst *float64
	}{
		{"price", &in.Price},
		{"interest_rate", &in.InterestRateAnnualPct},
		{"property_tax_rate", &in.PropertyTaxRateAnnualPct},
		{"insurance_rate", &in.InsuranceRateAnnualPct},
		{"hoa_monthly", &in.HOAMonthly},
		{"extra_monthly_payment", &in.ExtraMonthlyPayment},
	}
	for _, f := range floats {
		if *f.dst, err = apphttp.ParseFormFloat(r, f.key, *f.dst); err != nil {
			return base, err
		}
	}

	if in.TermYears, err = apphttp.ParseFormInt(r, "term_years", in.TermYears); err != nil {
		return base, err
	}

	// Keep the default down payment ratio when only the price changes
	if base.Price > 0 {
		in.DownPayment = in.Price * base.DownPayment / base.Price
	} else if in.Price != base.Price {
		in.DownPayment = in.Price * defaults.DownPaymentPct / 100
	}
	if r.FormValue("down_payment_pct") != "" {
		pct, err := apphttp.ParseFormFloat(r, "down_payment_pct", 0)
		if err != nil {
			return base, err
		}
		in.DownPayment = in.Price * pct / 100
	}
	if in.DownPayment, err = apphttp.ParseFormFloat(r, "down_payment", in.DownPayment); err != nil {
		return base, err
	}

	if err := ValidateLoan(in); err != nil {
		return base, err
	}
	return in, nil
}

// ValidateLoan rejects inputs the engine would silently clamp
func ValidateLoan(in models.LoanInputs) error {
	if err := checkAmounts(map[string]float64{
		"price":                 in.Price,
		"down_payment":          in.DownPayment,
		"interest_rate":         in.InterestRateAnnualPct,
		"property_tax_rate":     in.PropertyTaxRateAnnualPct,
		"insurance_rate":        in.InsuranceRateAnnualPct,
		"hoa_monthly":           in.HOAMonthly,
		"extra_monthly_payment": in.ExtraMonthlyPayment,
	}); err != nil {
		return err
	}
	if in.DownPayment > in.Price {
		return fmt.Errorf("down_payment must not exceed price")
	}
	if in.TermYears <= 0 {
		return fmt.Errorf("term_years must be positive")
	}
	if in.TermYears > mortgage.MaxTermYears {
		return fmt.Errorf("term_years must be at most %d", mortgage.MaxTermYears)
	}
	return nil
}

// checkAmounts reports the first negative or non-finite value
func checkAmounts(values map[string]float64) error {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		v := values[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", name)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
