package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"codegraph/config"
	"codegraph/internal/bootstrap"
	"codegraph/internal/usecase"
)

func main() {
	indexPath := flag.String("index", ".", "Path to indexed directory")
	golden := flag.String("golden", "", "Golden dataset (YAML or JSON list of {query, expected_file})")
	topK := flag.Int("k", 8, "Cutoff for hit rate")
	runs := flag.Int("runs", 3, "Repetitions per query for latency")
	flag.Parse()

	if *golden == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -index ./project -golden golden.yaml [-k 8] [-runs 3]")
		fmt.Println("\nReports:")
		fmt.Println("  1. Hit rate@k and MRR over the golden set")
		fmt.Println("  2. Query latency percentiles (embedding + retrieval + graph enrichment)")
		os.Exit(1)
	}

	cases, err := usecase.LoadGolden(*golden)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading golden set: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	app, err := bootstrap.Open(cfg, *indexPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	engine := app.Engine()
	stats := app.Index().Stats()

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Files indexed:  %d\n", stats.TotalFiles)
	fmt.Printf("Chunks indexed: %d\n", stats.TotalChunks)
	fmt.Printf("Model: %s (%s)\n", app.Embedder().ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", app.Embedder().Dimension())
	fmt.Printf("Golden cases: %d, k=%d, runs=%d\n\n", len(cases), *topK, *runs)

	ctx := context.Background()
	report, err := usecase.Evaluate(ctx, engine, cases, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Evaluation error: %v\n", err)
		os.Exit(1)
	}

	for i, c := range report.PerCase {
		rating := "MISS"
		switch {
		case c.Reciprocal == 1:
			rating = "TOP1"
		case c.Hit:
			rating = "HIT "
		}
		fmt.Printf("%2d. [%s rr=%.2f] %s\n", i+1, rating, c.Reciprocal, c.Query)
		fmt.Printf("    expected %s, got %s\n", c.ExpectedFile, strings.Join(firstN(c.Files, 3), ", "))
	}

	var latencies []time.Duration
	for r := 0; r < *runs; r++ {
		for _, c := range cases {
			start := time.Now()
			if _, err := engine.Retrieve(ctx, c.Query, *topK); err != nil {
				fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
				os.Exit(1)
			}
			latencies = append(latencies, time.Since(start))
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Hit rate@%d: %.3f\n", *topK, report.HitRate)
	fmt.Printf("  MRR:         %.3f\n", report.MRR)
	fmt.Printf("LATENCY:\n")
	fmt.Printf("  p50: %s\n", percentile(latencies, 0.50))
	fmt.Printf("  p95: %s\n", percentile(latencies, 0.95))
	fmt.Printf("  max: %s\n", percentile(latencies, 1))

	if report.HitRate > 0.8 {
		fmt.Println("  Status: GOOD - expected files are retrieved")
	} else if report.HitRate > 0.5 {
		fmt.Println("  Status: OK - some expected files are missed")
	} else {
		fmt.Println("  Status: POOR - check chunking, embeddings or re-index")
	}
}

func firstN(files []string, n int) []string {
	if len(files) > n {
		return files[:n]
	}
	return files
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(p*float64(len(sorted)-1) + 0.5)
	return sorted[i].Round(time.Microsecond)
}
