package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codegraph/internal/domain"
)

// GoldenCase is one labelled query: the file a good answer must come from.
type GoldenCase struct {
	Query        string `yaml:"query" json:"query"`
	ExpectedFile string `yaml:"expected_file" json:"expected_file"`
}

// LoadGolden reads a YAML (or JSON, which YAML accepts) list of golden cases.
func LoadGolden(path string) ([]GoldenCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden set: %w", err)
	}
	var cases []GoldenCase
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse golden set: %w", err)
	}
	for i, c := range cases {
		if c.Query == "" || c.ExpectedFile == "" {
			return nil, fmt.Errorf("golden case %d: query and expected_file are required", i)
		}
	}
	return cases, nil
}

// Engine is the retrieval surface evaluation runs against.
type Engine interface {
	Retrieve(ctx context.Context, query string, limit int) (*domain.Retrieval, error)
}

type CaseResult struct {
	Query        string        `json:"query"`
	ExpectedFile string        `json:"expected_file"`
	Files        []string      `json:"files"`
	Hit          bool          `json:"hit"`
	Reciprocal   float64       `json:"reciprocal_rank"`
	Latency      time.Duration `json:"latency"`
}

type EvalReport struct {
	Cases       int           `json:"cases"`
	K           int           `json:"k"`
	HitRate     float64       `json:"hit_rate"`
	MRR         float64       `json:"mrr"`
	MeanLatency time.Duration `json:"mean_latency"`
	PerCase     []CaseResult  `json:"per_case"`
}

// Evaluate runs every case with limit k. A failing query aborts the run
// except for ErrEmptyQuery, which scores as a miss.
func Evaluate(ctx context.Context, engine Engine, cases []GoldenCase, k int) (*EvalReport, error) {
	report := &EvalReport{Cases: len(cases), K: k}
	if len(cases) == 0 {
		return report, nil
	}

	var total time.Duration
	var hits int
	var rrSum float64
	for _, c := range cases {
		start := time.Now()
		r, err := engine.Retrieve(ctx, c.Query, k)
		elapsed := time.Since(start)
		if err != nil && !errors.Is(err, domain.ErrEmptyQuery) {
			return nil, fmt.Errorf("query %q: %w", c.Query, err)
		}

		var files []string
		if r != nil {
			files = resultFiles(r)
		}
		cr := CaseResult{
			Query:        c.Query,
			ExpectedFile: c.ExpectedFile,
			Files:        files,
			Hit:          HitAtK(files, c.ExpectedFile, k),
			Reciprocal:   ReciprocalRank(files, c.ExpectedFile),
			Latency:      elapsed,
		}
		if cr.Hit {
			hits++
		}
		rrSum += cr.Reciprocal
		total += elapsed
		report.PerCase = append(report.PerCase, cr)
	}

	n := float64(len(cases))
	report.HitRate = float64(hits) / n
	report.MRR = rrSum / n
	report.MeanLatency = total / time.Duration(len(cases))
	return report, nil
}

// resultFiles lists result files in rank order, first occurrence only.
func resultFiles(r *domain.Retrieval) []string {
	seen := make(map[string]bool)
	var files []string
	for _, rc := range r.Results {
		if seen[rc.Chunk.FilePath] {
			continue
		}
		seen[rc.Chunk.FilePath] = true
		files = append(files, rc.Chunk.FilePath)
	}
	return files
}

func HitAtK(retrieved []string, relevant string, k int) bool {
	for i, r := range retrieved {
		if i >= k {
			break
		}
		if r == relevant {
			return true
		}
	}
	return false
}

func PrecisionAtK(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	relevantSet := make(map[string]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(retrieved))
}

func RecallAtK(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	relevantSet := make(map[string]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

func ReciprocalRank(retrieved []string, relevant string) float64 {
	for i, r := range retrieved {
		if r == relevant {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}
