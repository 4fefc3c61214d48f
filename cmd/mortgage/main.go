// Command mortgage runs the mortgage engine from the terminal.
package main

import (
	"os"

	"realestate/internal/config"
	"realestate/internal/services/investment"
	"realestate/internal/services/mortgage"
	"realestate/internal/version"

	"github.com/spf13/cobra"
)

// options holds the flags shared by every subcommand
type options struct {
	configPath string
	price      float64
	down       float64
	downPct    float64
	rate       float64
	term       int
	taxRate    float64
	insurance  float64
	hoa        float64
	extra      float64

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "mortgage",
		Short:        "Mortgage payment, amortization and affordability calculator",
		Long:         "Compute monthly payments, amortization schedules, affordability and rental returns.",
		Version:      version.Get().Short(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadConfig()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", os.Getenv("REALESTATE_CONFIG"), "TOML file with calculator defaults and lending policy")
	f.Float64VarP(&opts.price, "price", "p", 0, "Home price")
	f.Float64VarP(&opts.down, "down", "d", 0, "Down payment amount")
	f.Float64Var(&opts.downPct, "down-pct", 0, "Down payment as a percent of price (default from config)")
	f.Float64VarP(&opts.rate, "rate", "r", 0, "Annual interest rate in percent (default from config)")
	f.IntVarP(&opts.term, "term", "t", 0, "Loan term in years (default from config)")
	f.Float64Var(&opts.taxRate, "tax-rate", 0, "Annual property tax rate in percent (default from config)")
	f.Float64Var(&opts.insurance, "insurance-rate", 0, "Annual insurance rate in percent (default from config)")
	f.Float64Var(&opts.hoa, "hoa", 0, "Monthly HOA dues")
	f.Float64Var(&opts.extra, "extra", 0, "Extra principal paid each month")

	root.AddCommand(
		newPaymentCmd(opts),
		newScheduleCmd(opts),
		newAffordCmd(opts),
		newInvestCmd(opts),
	)
	return root
}

// loadConfig reads calculator defaults and the lending policy
func (o *options) loadConfig() error {
	o.cfg = config.DefaultConfig()
	if o.configPath != "" {
		if err := o.cfg.LoadFile(o.configPath); err != nil {
			return err
		}
	}
	o.cfg.Policy = o.cfg.Policy.Normalized()
	return nil
}

func (o *options) calculator() *mortgage.Calculator {
	return mortgage.NewCalculator(o.cfg.Policy)
}

func (o *options) analyzer() *investment.Analyzer {
	return investment.New(o.calculator())
}
