package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"codegraph/internal/bootstrap"
	"codegraph/internal/domain"
	"codegraph/internal/usecase"
)

var (
	queryText  string
	queryLimit int
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Retrieve code context for a question",
	Long: `Search the index with dense and lexical retrieval, fuse or diversify the
rankings and attach call relationships from the graph.

Examples:
  codegraph query -q "where is the invoice total computed"
  codegraph query -q "smtp connection" --limit 4 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	a, err := bootstrap.Open(GetConfig(), GetRootDir(), false)
	if errors.Is(err, domain.ErrIndexNotReady) {
		slog.Warn("no usable index", "error", err)
		return printNotReady(w, GetConfig().Embedding.Model)
	}
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Asker().Ask(cmd.Context(), queryText, queryLimit)
	if errors.Is(err, domain.ErrIndexNotReady) {
		return printNotReady(w, a.Config().Embedding.Model)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		return printJSON(w, out)
	}

	if len(out.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	fmt.Fprintf(w, "Found %d results for: %s (confidence %.2f)\n\n", len(out.Records), out.Query, out.Confidence)
	for i, r := range out.Records {
		label := r.Symbol
		if r.HookType != "" {
			label += " [" + r.HookType + "]"
		}
		fmt.Fprintf(w, "--- [%d] %s:L%d-%d %s (confidence: %.2f) ---\n", i+1, r.File, r.StartLine, r.EndLine, label, r.Confidence)
		fmt.Fprintln(w, r.Code)
		for _, rel := range r.CallRelationships {
			fmt.Fprintf(w, "  calls: %s\n", rel)
		}
		if len(r.RelatedFiles) > 0 {
			fmt.Fprintf(w, "  related: %v\n", r.RelatedFiles)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printNotReady(w io.Writer, model string) error {
	if queryJSON {
		return printJSON(w, usecase.Unindexed{Model: model}.Health())
	}
	fmt.Fprintln(w, "Index not ready: run 'codegraph index' first.")
	return nil
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(output))
	return nil
}
