package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"realestate/internal/cli"
	"realestate/internal/models"
	"realestate/internal/services/mortgage"
)

var errNoPrice = errors.New("--price is required")

// loanInputs merges the flags over the configured defaults
func (o *options) loanInputs(cmd *cobra.Command) (models.LoanInputs, error) {
	if o.price <= 0 {
		return models.LoanInputs{}, errNoPrice
	}

	d := o.cfg.Calculator
	if cmd.Flags().Changed("down-pct") {
		d.DownPaymentPct = o.downPct
	}
	if cmd.Flags().Changed("rate") {
		d.InterestRatePct = o.rate
	}
	if cmd.Flags().Changed("term") {
		d.TermYears = o.term
	}
	if cmd.Flags().Changed("insurance-rate") {
		d.InsuranceRatePct = o.insurance
	}

	in := d.LoanInputs(o.price, o.hoa, o.taxRate)
	if cmd.Flags().Changed("down") {
		in.DownPayment = o.down
	}
	in.ExtraMonthlyPayment = o.extra

	switch {
	case in.DownPayment < 0 || in.DownPayment > in.Price:
		return in, fmt.Errorf("down payment must be between 0 and the price")
	case in.TermYears <= 0:
		return in, fmt.Errorf("--term must be positive")
	case in.TermYears > mortgage.MaxTermYears:
		return in, fmt.Errorf("--term must be at most %d", mortgage.MaxTermYears)
	case in.InterestRateAnnualPct < 0 || in.PropertyTaxRateAnnualPct < 0 || in.InsuranceRateAnnualPct < 0:
		return in, fmt.Errorf("rates must not be negative")
	case in.HOAMonthly < 0 || in.ExtraMonthlyPayment < 0:
		return in, fmt.Errorf("--hoa and --extra must not be negative")
	}
	return in, nil
}

func newPaymentCmd(o *options) *cobra.Command {
	var breakdown bool
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Monthly payment and lifetime totals for a purchase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := o.loanInputs(cmd)
			if err != nil {
				return err
			}
			res := o.calculator().Calculate(in)

			out := cmd.OutOrStdout()
			printTitle(out, "MORTGAGE PAYMENT")
			fmt.Fprint(out, cli.RenderTable(cli.PaymentTable(res)))
			if breakdown {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  Lifetime cost")
				fmt.Fprint(out, cli.BreakdownLines(res.Breakdown, 30))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&breakdown, "breakdown", "b", false, "Show lifetime cost by category")
	return cmd
}

func newScheduleCmd(o *options) *cobra.Command {
	var monthly bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Amortization schedule, one row per year unless --monthly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := o.loanInputs(cmd)
			if err != nil {
				return err
			}
			res := o.calculator().Calculate(in)

			out := cmd.OutOrStdout()
			printTitle(out, fmt.Sprintf("AMORTIZATION  %s over %s",
				cli.FormatWhole(res.Resolution.LoanAmount), cli.FormatMonths(res.PayoffPeriods)))
			if !res.FullyAmortized {
				fmt.Fprintln(out, "  Warning: payments never reduce the balance; the loan is not amortized.")
				return nil
			}
			if len(res.Schedule) == 0 {
				fmt.Fprintln(out, "  Nothing to amortize.")
				return nil
			}
			fmt.Fprintf(out, "  Balance %s\n\n", cli.BalanceSparkline(res.Schedule, 40))
			fmt.Fprint(out, cli.RenderTable(cli.ScheduleTable(res.Schedule, !monthly)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&monthly, "monthly", false, "List every payment instead of yearly totals")
	return cmd
}

func newAffordCmd(o *options) *cobra.Command {
	var in models.AffordabilityInputs
	cmd := &cobra.Command{
		Use:   "afford",
		Short: "Largest payment and price a household can carry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.MonthlyIncome <= 0 {
				return errors.New("--income is required")
			}
			if in.MonthlyDebts < 0 || in.MonthlyExpenses < 0 {
				return errors.New("--debts and --expenses must not be negative")
			}

			rate, term := o.cfg.Calculator.InterestRatePct, o.cfg.Calculator.TermYears
			if cmd.Flags().Changed("rate") {
				rate = o.rate
			}
			if cmd.Flags().Changed("term") {
				term = o.term
			}
			if term <= 0 {
				return errors.New("--term must be positive")
			}
			if term > mortgage.MaxTermYears {
				return fmt.Errorf("--term must be at most %d", mortgage.MaxTermYears)
			}

			res := o.calculator().Affordability(in, rate, term)
			out := cmd.OutOrStdout()
			printTitle(out, "AFFORDABILITY")
			fmt.Fprint(out, cli.RenderTable(cli.AffordabilityTable(in, res, rate, term)))
			if res.MaxAffordablePrice <= 0 {
				fmt.Fprintln(out, cli.Warn("  Existing debts leave no room for a housing payment."))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&in.MonthlyIncome, "income", 0, "Gross monthly income")
	cmd.Flags().Float64Var(&in.MonthlyDebts, "debts", 0, "Existing monthly debt payments")
	cmd.Flags().Float64Var(&in.MonthlyExpenses, "expenses", 0, "Other recurring monthly obligations")
	return cmd
}

func newInvestCmd(o *options) *cobra.Command {
	var in models.InvestmentInputs
	cmd := &cobra.Command{
		Use:   "invest",
		Short: "Cash flow and return metrics for a rental purchase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loan, err := o.loanInputs(cmd)
			if err != nil {
				return err
			}
			if in.MonthlyRent <= 0 {
				return errors.New("--rent is required")
			}
			if in.VacancyRatePct < 0 || in.VacancyRatePct > 100 {
				return errors.New("--vacancy must be between 0 and 100")
			}
			in.Loan = loan

			res := o.analyzer().Analyze(in)
			out := cmd.OutOrStdout()
			printTitle(out, "RENTAL INVESTMENT")
			fmt.Fprint(out, cli.RenderTable(cli.InvestmentTable(res)))
			return nil
		},
	}
	cmd.Flags().Float64Var(&in.MonthlyRent, "rent", 0, "Expected monthly rent")
	cmd.Flags().Float64Var(&in.VacancyRatePct, "vacancy", 5, "Vacancy rate in percent")
	cmd.Flags().Float64Var(&in.MonthlyOperatingExpenses, "opex", 0, "Monthly operating expenses (maintenance, management)")
	cmd.Flags().Float64Var(&in.ClosingCosts, "closing", 0, "Closing costs paid in cash")
	return cmd
}

func printTitle(out io.Writer, title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(title))
	fmt.Fprintln(out)
}
