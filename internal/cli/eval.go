package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"codegraph/internal/bootstrap"
	"codegraph/internal/usecase"
)

var (
	evalGolden string
	evalK      int
	evalJSON   bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Measure retrieval quality against a golden set",
	Long: `Run every query of a golden file and report hit-rate@k, MRR and mean latency.
The golden file is a YAML or JSON list of {query, expected_file}.

Examples:
  codegraph eval --golden golden.yaml
  codegraph eval --golden golden.json -k 5 --json`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVar(&evalGolden, "golden", "", "golden dataset file (required)")
	evalCmd.Flags().IntVarP(&evalK, "top-k", "k", 0, "cutoff (default retrieve.limit)")
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "output as JSON")
	_ = evalCmd.MarkFlagRequired("golden")
}

func runEval(cmd *cobra.Command, args []string) error {
	cases, err := usecase.LoadGolden(evalGolden)
	if err != nil {
		return err
	}

	a, err := bootstrap.Open(GetConfig(), GetRootDir(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	k := evalK
	if k <= 0 {
		k = a.Config().Retrieve.Limit
	}
	report, err := usecase.Evaluate(cmd.Context(), a.Engine(), cases, k)
	if err != nil {
		return err
	}

	if evalJSON {
		return printJSON(cmd.OutOrStdout(), report)
	}
	printReport(report)
	return nil
}

func printReport(r *usecase.EvalReport) {
	for _, c := range r.PerCase {
		mark := "miss"
		if c.Hit {
			mark = "hit "
		}
		fmt.Printf("%s  rr=%.2f  %6s  %s -> %s\n", mark, c.Reciprocal, formatLatency(c.Latency.Seconds()), c.Query, c.ExpectedFile)
	}
	fmt.Printf("\nCases:        %d\n", r.Cases)
	fmt.Printf("Hit rate@%d:  %.3f\n", r.K, r.HitRate)
	fmt.Printf("MRR:          %.3f\n", r.MRR)
	fmt.Printf("Mean latency: %s\n", formatLatency(r.MeanLatency.Seconds()))
}

func formatLatency(seconds float64) string {
	return fmt.Sprintf("%.0fms", seconds*1000)
}
