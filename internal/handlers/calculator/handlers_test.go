package calculator

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/internal/config"
	"realestate/internal/models"
	"realestate/internal/observability"
	"realestate/internal/services/cache"
	"realestate/internal/services/mortgage"
	"realestate/internal/templates"
	"realestate/web"
)

func setup(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()

	sub, err := fs.Sub(web.FS, "templates")
	require.NoError(t, err)
	r, err := templates.New(sub, false)
	require.NoError(t, err)

	m := observability.NewMetrics()
	Initialize(r, mortgage.Default(), cache.NewMemoryCache(64), m, config.DefaultConfig())

	router := chi.NewRouter()
	RegisterRoutes(router)
	return router, m
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMortgageEndpoint(t *testing.T) {
	h, _ := setup(t)

	body := `{"price":300000,"down_payment":30000,"interest_rate":3.5,"term_years":25,"property_tax_rate":1.2,"insurance_rate":0.5}`
	rec := postJSON(h, "/api/calculator/mortgage", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.MortgageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 270000.0, result.Resolution.LoanAmount)
	assert.Equal(t, 112.5, result.Payment.PMI)
	assert.Equal(t, 300, result.PayoffPeriods)
	assert.Len(t, result.Schedule, 300)
	assert.Equal(t, 300.0, result.Payment.PropertyTax)
	assert.Equal(t, 125.0, result.Payment.Insurance)
}

func TestMortgageCacheHit(t *testing.T) {
	h, m := setup(t)

	body := `{"price":500000,"down_payment":100000,"interest_rate":6,"term_years":30}`
	first := postJSON(h, "/api/calculator/mortgage", body)
	second := postJSON(h, "/api/calculator/mortgage", body)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	out, err := m.Registry().Gather()
	require.NoError(t, err)
	var hits float64
	for _, mf := range out {
		if mf.GetName() != "realestate_calculations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["kind"] == KindMortgage && labels["cache"] == "hit" {
				hits = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, hits)
}

func TestMortgageValidation(t *testing.T) {
	h, _ := setup(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"unknown field", `{"price":1,"bogus":2}`},
		{"negative price", `{"price":-1,"term_years":30}`},
		{"down payment above price", `{"price":100,"down_payment":200,"term_years":30}`},
		{"negative term", `{"price":100,"term_years":-5}`},
		{"term above cap", `{"price":300000,"down_payment":60000,"interest_rate":6,"term_years":51}`},
		{"term overflows period count", `{"price":300000,"down_payment":60000,"interest_rate":6,"term_years":768614336404564651}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(h, "/api/calculator/mortgage", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestAffordabilityEndpoint(t *testing.T) {
	h, _ := setup(t)

	t.Run("explicit terms", func(t *testing.T) {
		rec := postJSON(h, "/api/calculator/affordability",
			`{"monthly_income":10000,"monthly_debts":500,"monthly_expenses":0,"interest_rate":6,"term_years":30}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp AffordabilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3100.0, resp.MaxAffordableMonthlyPayment)
		assert.InDelta(t, 517054, resp.MaxAffordablePrice, 0.01)
		assert.Equal(t, 30, resp.TermYears)
	})

	t.Run("debts exceed ceiling", func(t *testing.T) {
		rec := postJSON(h, "/api/calculator/affordability",
			`{"monthly_income":3000,"monthly_debts":1500,"monthly_expenses":500}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AffordabilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Less(t, resp.MaxAffordableMonthlyPayment, 0.0)
		assert.Equal(t, 0.0, resp.MaxAffordablePrice)
		assert.Equal(t, 6.5, resp.InterestRateAnnualPct, "default rate")
	})

	t.Run("zero term rejected", func(t *testing.T) {
		rec := postJSON(h, "/api/calculator/affordability", `{"monthly_income":3000,"term_years":0}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("term above cap rejected", func(t *testing.T) {
		for _, term := range []string{"51", "20000", "768614336404564651"} {
			rec := postJSON(h, "/api/calculator/affordability", `{"monthly_income":10000,"interest_rate":6,"term_years":`+term+`}`)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "term_years %s", term)
			assert.Contains(t, rec.Body.String(), "term_years must be at most 50")
		}
	})

	t.Run("term at cap accepted", func(t *testing.T) {
		rec := postJSON(h, "/api/calculator/affordability", `{"monthly_income":10000,"interest_rate":6,"term_years":50}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp AffordabilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Greater(t, resp.MaxAffordablePrice, 0.0)
	})
}

func TestMortgageTermCap(t *testing.T) {
	h, _ := setup(t)

	rec := postJSON(h, "/api/calculator/mortgage", `{"price":300000,"down_payment":60000,"interest_rate":6,"term_years":20000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"term_years must be at most 50"}`, rec.Body.String())

	rec = postJSON(h, "/api/calculator/mortgage", `{"price":300000,"down_payment":60000,"interest_rate":6,"term_years":50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.MortgageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 600, result.PayoffPeriods)
	assert.True(t, result.FullyAmortized)
	require.NotEmpty(t, result.Schedule)
	assert.Equal(t, 0.0, result.Schedule[len(result.Schedule)-1].RemainingBalance)

	req := httptest.NewRequest(http.MethodPost, "/calculator/schedule", strings.NewReader("price=300000&down_payment=60000&interest_rate=6&term_years=20000"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	form := httptest.NewRecorder()
	h.ServeHTTP(form, req)
	assert.Equal(t, http.StatusBadRequest, form.Code)
	assert.Contains(t, form.Body.String(), "term_years must be at most 50")
}

func TestInvestmentEndpoint(t *testing.T) {
	h, _ := setup(t)

	rec := postJSON(h, "/api/calculator/investment",
		`{"loan":{"price":200000,"down_payment":40000,"interest_rate":6,"term_years":30},"monthly_rent":2000,"vacancy_rate":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.InvestmentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1900.0, result.EffectiveMonthlyRent)
	assert.True(t, result.MeetsOnePercentRule)

	rec = postJSON(h, "/api/calculator/investment", `{"loan":{"price":200000,"term_years":30},"vacancy_rate":150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculatorPage(t *testing.T) {
	h, _ := setup(t)

	t.Run("blank form", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calculator", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Mortgage calculator")
		assert.NotContains(t, rec.Body.String(), "Amortization schedule")
	})

	t.Run("with inputs", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/calculator?price=300000&down_payment=60000&interest_rate=6&term_years=30&property_tax_rate=0&insurance_rate=0", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "$1,438.92")
		assert.Contains(t, rec.Body.String(), "Amortization schedule (360 payments)")
	})

	t.Run("bad input shows error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calculator?price=abc", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid price")
	})
}

func TestSchedulePartial(t *testing.T) {
	h, _ := setup(t)

	form := url.Values{
		"price":                 {"200000"},
		"down_payment":          {"40000"},
		"interest_rate":         {"5"},
		"term_years":            {"15"},
		"extra_monthly_payment": {"200"},
	}
	req := httptest.NewRequest(http.MethodPost, "/calculator/schedule", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Monthly payment")
	assert.Contains(t, body, "months early")
	assert.NotContains(t, body, "<html")

	req = httptest.NewRequest(http.MethodPost, "/calculator/schedule", strings.NewReader("price=100&down_payment=500"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "down_payment must not exceed price")
}

func TestParseLoanFormKeepsDownPaymentRatio(t *testing.T) {
	base := config.DefaultConfig().Calculator.LoanInputs(400000, 0, 0)

	req := httptest.NewRequest(http.MethodGet, "/?price=500000", nil)
	in, err := ParseLoanForm(req, base)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, in.DownPayment)

	req = httptest.NewRequest(http.MethodGet, "/?down_payment_pct=5", nil)
	in, err = ParseLoanForm(req, base)
	require.NoError(t, err)
	assert.Equal(t, 20000.0, in.DownPayment)
}

func TestRoundResultLeavesEngineOutput(t *testing.T) {
	raw := mortgage.Calculate(models.LoanInputs{Price: 123456.789, InterestRateAnnualPct: 4.321, TermYears: 10})
	first := raw.Schedule[0].InterestPaid

	rounded := RoundResult(raw)
	assert.Equal(t, first, raw.Schedule[0].InterestPaid)
	assert.InDelta(t, first, rounded.Schedule[0].InterestPaid, 0.005)
	assert.Len(t, rounded.Schedule, len(raw.Schedule))
}
