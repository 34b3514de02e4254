package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taxlator-api/internal/calculation"
	"taxlator-api/internal/config"
	"taxlator-api/internal/models"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taxlator",
		Short: "Nigerian tax calculator",
		Long: `Run the PAYE/PIT, freelancer, company income tax and VAT calculators
offline against the built-in rate tables or a YAML rate table file.

Results are printed as JSON in the same shape the API returns.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("rates", "", "YAML rate table file (default: built-in tables)")

	root.AddCommand(
		payeCmd(),
		freelancerCmd(),
		citCmd(),
		vatCmd(),
		ratesCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taxlator %s (commit %s)\n", version, commit)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "go %s\n", bi.GoVersion)
			}
		},
	}
}

func payeCmd() *cobra.Command {
	in := &models.PayeInput{Type: models.TaxTypePAYE}
	var frequency string
	var rentRelief, otherDeductions float64
	var nhis, nhf bool

	cmd := &cobra.Command{
		Use:   "paye",
		Short: "Calculate PAYE/PIT for an employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Frequency = models.Frequency(frequency)
			if cmd.Flags().Changed("rent-relief") {
				in.RentRelief = &rentRelief
			}
			if cmd.Flags().Changed("other-deductions") {
				in.OtherDeductions = &otherDeductions
			}
			if cmd.Flags().Changed("nhis") {
				in.IncludeNHIS = &nhis
			}
			if cmd.Flags().Changed("nhf") {
				in.IncludeNHF = &nhf
			}
			return calculate(cmd, in)
		},
	}

	cmd.Flags().Float64Var(&in.GrossIncome, "gross", 0, "annual gross income")
	cmd.Flags().StringVar(&frequency, "frequency", "", "result frequency: annual or monthly")
	cmd.Flags().Float64Var(&rentRelief, "rent-relief", 0, "annual rent paid")
	cmd.Flags().Float64Var(&otherDeductions, "other-deductions", 0, "other annual deductions")
	cmd.Flags().BoolVar(&nhis, "nhis", false, "deduct the NHIS contribution")
	cmd.Flags().BoolVar(&nhf, "nhf", false, "deduct the NHF contribution")
	_ = cmd.MarkFlagRequired("gross")
	return cmd
}

func freelancerCmd() *cobra.Command {
	in := &models.FreelancerInput{Type: models.TaxTypeFreelancer}
	var frequency string
	var expenses, pension float64

	cmd := &cobra.Command{
		Use:   "freelancer",
		Short: "Calculate personal income tax for a freelancer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Frequency = models.Frequency(frequency)
			if cmd.Flags().Changed("expenses") {
				in.Expenses = &expenses
			}
			if cmd.Flags().Changed("pension") {
				in.Pension = &pension
			}
			return calculate(cmd, in)
		},
	}

	cmd.Flags().Float64Var(&in.GrossIncome, "gross", 0, "annual gross income")
	cmd.Flags().StringVar(&frequency, "frequency", "", "result frequency: annual or monthly")
	cmd.Flags().Float64Var(&expenses, "expenses", 0, "allowable business expenses")
	cmd.Flags().Float64Var(&pension, "pension", 0, "voluntary pension contribution")
	_ = cmd.MarkFlagRequired("gross")
	return cmd
}

func citCmd() *cobra.Command {
	in := &models.CITInput{Type: models.TaxTypeCIT}
	var size string
	var accountingProfit float64

	cmd := &cobra.Command{
		Use:   "cit",
		Short: "Calculate company income tax",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.CompanySize = models.CompanySize(size)
			if cmd.Flags().Changed("accounting-profit") {
				in.AccountingProfit = &accountingProfit
			}
			return calculate(cmd, in)
		},
	}

	cmd.Flags().StringVar(&size, "size", "", "company size: SMALL, MEDIUM, LARGE or MULTINATIONAL")
	cmd.Flags().Float64Var(&in.TaxableProfit, "profit", 0, "taxable profit, negative for a loss")
	cmd.Flags().Float64Var(&accountingProfit, "accounting-profit", 0, "accounting profit for the minimum tax")
	cmd.Flags().Float64Var(&in.AnnualTurnover, "turnover", 0, "annual turnover")
	cmd.Flags().Float64Var(&in.FixedAssets, "fixed-assets", 0, "fixed assets")
	_ = cmd.MarkFlagRequired("size")
	return cmd
}

func vatCmd() *cobra.Command {
	in := &models.VATInput{}
	var mode, transaction string

	cmd := &cobra.Command{
		Use:   "vat",
		Short: "Add VAT to or remove VAT from an amount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.CalculationType = models.VATCalculationType(mode)
			in.TransactionType = models.VATTransactionType(transaction)
			return calculate(cmd, in)
		},
	}

	cmd.Flags().Float64Var(&in.TransactionAmount, "amount", 0, "transaction amount")
	cmd.Flags().StringVar(&mode, "mode", string(models.VATCalculationAdd), "add or remove")
	cmd.Flags().StringVar(&transaction, "type", string(models.VATTransactionDomestic), "transaction type")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func ratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Print the active rate tables as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := loadTables(cmd)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(tables); err != nil {
				return fmt.Errorf("failed to encode rate tables: %w", err)
			}
			return enc.Close()
		},
	}
}

func loadTables(cmd *cobra.Command) (*models.RateTables, error) {
	path, _ := cmd.Flags().GetString("rates")
	return config.LoadRateTables(config.RateTablesConfig{Path: path})
}

func calculate(cmd *cobra.Command, input models.CalculationInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	tables, err := loadTables(cmd)
	if err != nil {
		return err
	}

	calculator, err := calculation.NewCalculator(tables)
	if err != nil {
		return err
	}

	result, err := calculator.Calculate(input)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), result)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
