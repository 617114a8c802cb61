package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codegraph/config"
	"codegraph/internal/adapter/graph"
	"codegraph/internal/adapter/store"
	"codegraph/internal/domain"
)

var (
	graphNode string
	graphJSON bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the call graph",
	Long: `Print graph statistics, or the callers and callees of one node.
Node ids are path[:Class]:name, or a bare file path.

Examples:
  codegraph graph
  codegraph graph --node billing.py:Invoice:validate
  codegraph graph --node billing.py --json`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVar(&graphNode, "node", "", "node id to inspect")
	graphCmd.Flags().BoolVar(&graphJSON, "json", false, "output the node neighborhood as JSON")
}

func runGraph(cmd *cobra.Command, args []string) error {
	dbPath := config.IndexDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: no index at %s", domain.ErrIndexNotReady, dbPath)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	g, err := st.LoadGraph()
	if err != nil {
		return err
	}

	if graphNode == "" {
		fmt.Printf("Nodes: %d\nEdges: %d\n", g.NodeCount(), g.EdgeCount())
		return nil
	}
	if !g.HasNode(graphNode) {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, graphNode)
	}

	if graphJSON {
		ids := append([]string{graphNode}, g.Neighbors(graphNode)...)
		return printJSON(cmd.OutOrStdout(), g.Subgraph(ids))
	}
	writeNeighborhood(os.Stdout, g, graphNode)
	return nil
}

func writeNeighborhood(w io.Writer, g *graph.Graph, id string) {
	n, _ := g.Node(id)
	fmt.Fprintf(w, "%s (%s)\n", id, n.Type)

	section := func(title string, edges []domain.Edge, other func(domain.Edge) string) {
		fmt.Fprintf(w, "\n%s:\n", title)
		if len(edges) == 0 {
			fmt.Fprintln(w, "  (none)")
			return
		}
		for _, e := range edges {
			fmt.Fprintf(w, "  %-8s %s\n", strings.ToLower(string(e.Kind)), other(e))
		}
	}
	section("Predecessors", g.InEdges(id), func(e domain.Edge) string { return e.Source })
	section("Successors", g.OutEdges(id), func(e domain.Edge) string { return e.Target })
}
