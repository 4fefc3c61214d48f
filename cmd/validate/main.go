// Package main provides a CLI tool for smoke-testing a running server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type endpoint struct {
	path        string
	method      string
	body        string
	status      int
	contentType string
	contains    []string
}

var endpoints = []endpoint{
	// Pages
	{path: "/calculator", method: "GET", contentType: "text/html", contains: []string{"Mortgage calculator", `id="results"`}},
	{path: "/calculator?price=400000&down_payment=80000&interest_rate=6&term_years=30", method: "GET", contentType: "text/html", contains: []string{"Monthly payment"}},
	{path: "/calculator/schedule", method: "POST", body: "price=400000&down_payment=80000&interest_rate=6&term_years=30", contentType: "text/html"},

	// Calculator API
	{path: "/api/calculator/mortgage", method: "POST", body: `{"price":400000,"down_payment":80000,"interest_rate":6,"term_years":30}`, contentType: "application/json", contains: []string{`"loan_amount":320000`}},
	{path: "/api/calculator/affordability", method: "POST", body: `{"monthly_income":9000,"monthly_debts":500,"monthly_expenses":1500}`, contentType: "application/json", contains: []string{"max_affordable_price"}},
	{path: "/api/calculator/investment", method: "POST", body: `{"loan":{"price":300000,"down_payment":60000,"interest_rate":6,"term_years":30},"monthly_rent":2400}`, contentType: "application/json", contains: []string{"cap_rate_pct"}},
	{path: "/api/calculator/mortgage", method: "POST", body: `{"price":-1}`, status: http.StatusBadRequest, contentType: "application/json"},

	// Marketplace
	{path: "/api/listings", method: "GET", contentType: "application/json", contains: []string{`"listings"`, `"total_pages"`}},
	{path: "/api/listings?sort=price&per_page=5", method: "GET", contentType: "application/json"},
	{path: "/api/listings", method: "POST", body: `{}`, status: http.StatusUnauthorized, contentType: "application/json"},
	{path: "/api/analytics/market", method: "GET", contentType: "application/json", contains: []string{"total_listings"}},
	{path: "/api/analytics/charts/city", method: "GET", contentType: "application/json"},
	{path: "/api/analytics/charts/type", method: "GET", contentType: "application/json"},
	{path: "/api/analytics/charts/price", method: "GET", contentType: "application/json"},
	{path: "/api/community/posts", method: "GET", contentType: "application/json"},
	{path: "/api/community/polls", method: "GET", contentType: "application/json"},

	// Protected surfaces
	{path: "/api/auth/me", method: "GET", status: http.StatusUnauthorized, contentType: "application/json"},
	{path: "/api/admin/agents", method: "GET", status: http.StatusUnauthorized, contentType: "application/json"},

	// Operations
	{path: "/api/health", method: "GET", contentType: "application/json", contains: []string{`"status":"ok"`}},
	{path: "/api/version", method: "GET", contentType: "application/json", contains: []string{`"version"`}},
	{path: "/metrics", method: "GET", contentType: "text/plain", contains: []string{"realestate_http_requests_total"}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
	body     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		url     string
		verbose bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:          "validate",
		Short:        "Check that a running server answers every public endpoint",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			failed := run(cmd.OutOrStdout(), client, url, verbose)
			if failed > 0 {
				return fmt.Errorf("%d endpoint(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080", "Base URL of the server to validate")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}

// run checks every endpoint and returns the number of failures
func run(out io.Writer, client *http.Client, baseURL string, verbose bool) int {
	fmt.Fprintf(out, "Validating server at %s\n", baseURL)
	fmt.Fprintf(out, "Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	for _, ep := range endpoints {
		r := validateEndpoint(client, baseURL, ep)
		if r.err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s %s\n", ep.method, ep.path)
			fmt.Fprintf(out, "     Error: %v\n", r.err)
			continue
		}
		passed++
		if verbose {
			fmt.Fprintf(out, "PASS %s %s (%v)\n", ep.method, ep.path, r.duration)
		}
	}

	fmt.Fprintf(out, "\n========================================\n")
	fmt.Fprintf(out, "Results: %d passed, %d failed\n", passed, failed)
	return failed
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	var body io.Reader
	if ep.body != "" {
		body = strings.NewReader(ep.body)
	}
	req, err := http.NewRequest(ep.method, baseURL+ep.path, body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if ep.body != "" {
		if strings.HasPrefix(ep.body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
		body:     string(raw),
	}

	want := ep.status
	if want == 0 {
		want = http.StatusOK
	}
	if r.status != want {
		r.err = fmt.Errorf("status %d, expected %d", r.status, want)
		return r
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	if ep.contentType == "application/json" {
		var js any
		if err := json.Unmarshal(raw, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	for _, needle := range ep.contains {
		if !strings.Contains(r.body, needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
