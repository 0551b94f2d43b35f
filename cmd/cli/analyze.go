package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/utils"
)

var jobs int

func init() {
	analyzeCmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Systems analyzed concurrently")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|dir>...",
	Short: "Analyze system documents and store the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), args)
	},
}

type analyzeResult struct {
	path     string
	analysis *models.Analysis
	err      error
}

func runAnalyze(ctx context.Context, args []string) error {
	log := logger.GetLogger()

	files, err := utils.FindSystemFiles(args...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("📭 No system documents found")
		return nil
	}

	svc := mustService()
	defer svc.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	fmt.Printf("🎼 Analyzing %d system(s)...\n", len(files))

	results := make([]analyzeResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, jobs))
	for i, path := range files {
		g.Go(func() error {
			a, err := svc.AnalyzeFile(ctx, path)
			results[i] = analyzeResult{path: path, analysis: a, err: err}
			// a broken document does not stop the batch, a cancellation does
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}

	var failed int
	fmt.Println()
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Printf("❌ %s: %v\n", r.path, r.err)
			log.Errorf("Analyze %s failed: %v", r.path, r.err)
		case r.analysis.Abnormal:
			fmt.Printf("⚠️  %s → %s (abnormal stacks: %v)\n", r.path, r.analysis.ID, abnormalStacks(r.analysis))
		default:
			fmt.Printf("✅ %s → %s\n", r.path, r.analysis.ID)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d systems failed", failed, len(files))
	}
	return nil
}

func abnormalStacks(a *models.Analysis) []int {
	var out []int
	for _, st := range a.Stacks {
		if st.Abnormal {
			out = append(out, st.Index)
		}
	}
	return out
}
