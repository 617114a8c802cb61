package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"codegraph/config"
	"codegraph/internal/bootstrap"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a source tree",
	Long: `Build the call graph and the chunk index for a directory. Only files whose
content changed since the last run are segmented and embedded again.
The index is stored in .codegraph/index.db within the target directory.

Examples:
  codegraph index .                 # Index current directory
  codegraph index /path/to/project  # Index specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	a, err := bootstrap.Open(GetConfig(), path, true)
	if err != nil {
		return err
	}
	defer a.Close()

	indexer, err := a.Indexer()
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", path)
	progress := newStageProgress()
	result, err := indexer.Index(cmd.Context(), path, progress.update)
	progress.finish()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete in %s:\n", formatDuration(result.Duration))
	fmt.Printf("  Files discovered: %d\n", result.FilesDiscovered)
	fmt.Printf("  Files indexed:    %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped:    %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files deleted:    %d (removed)\n", result.FilesDeleted)
	fmt.Printf("  Files failed:     %d\n", result.FilesFailed)
	fmt.Printf("  Chunks written:   %d\n", result.ChunksWritten)
	if result.ChunksDropped > 0 {
		fmt.Printf("  Chunks dropped:   %d (retried next run)\n", result.ChunksDropped)
	}
	fmt.Printf("  Graph:            %d nodes, %d edges\n", result.Nodes, result.Edges)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", config.IndexDBPath(path))
	return nil
}

// stageProgress draws one bar per pipeline stage.
type stageProgress struct {
	mu    sync.Mutex
	stage string
	bar   *progressbar.ProgressBar
	start time.Time
}

func newStageProgress() *stageProgress {
	return &stageProgress{}
}

func (p *stageProgress) update(stage string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stage != p.stage {
		if p.bar != nil {
			_ = p.bar.Finish()
		}
		p.stage = stage
		p.start = time.Now()
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", stageLabel(stage))),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	_ = p.bar.Set(done)
	if done > 0 && done < total {
		rate := float64(done) / time.Since(p.start).Seconds()
		if rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			p.bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", stageLabel(stage), formatDuration(eta)))
		}
	}
}

func (p *stageProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func stageLabel(stage string) string {
	switch stage {
	case "embed":
		return "Embedding"
	case "store":
		return "Storing"
	}
	return stage
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
