package cli

import (
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"profilematch/internal/adapter/fs"
	"profilematch/internal/adapter/imaging"
	"profilematch/internal/usecase"
)

var (
	benchDir  string
	benchTopK int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure matching accuracy over a labeled photo directory",
	Long: `Run the matcher over a directory of test photos whose base names are the
expected catalog codes, and report top-1 and top-K hit rates.

Examples:
  profilematch bench --test-dir ./test_photos -k 5`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringVar(&benchDir, "test-dir", "", "directory of labeled test photos (required)")
	benchCmd.Flags().IntVarP(&benchTopK, "top-k", "k", 5, "K for the top-K hit rate")
	benchCmd.MarkFlagRequired("test-dir")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ext, err := buildExtractor()
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	res := usecase.NewResources(ext, cfg.StorePath(GetRootDir()), log)
	matcher := usecase.NewMatcher(res, log)

	walker := fs.NewWalker(cfg.Index.Includes, cfg.Index.Excludes)
	files, err := walker.Walk(benchDir)
	if err != nil {
		return fmt.Errorf("failed to scan test directory: %w", err)
	}

	var photos []string
	for _, f := range files {
		if imaging.IsSupported(f.Path) {
			photos = append(photos, f.Path)
		}
	}
	if len(photos) == 0 {
		return fmt.Errorf("no test photos found in %s", benchDir)
	}

	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Scoring[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	var top1, topK, mirrored, failed int
	for i, path := range photos {
		bar.Set(i + 1)
		expected := usecase.CodeFromPath(path)

		img, err := imaging.Decode(path)
		if err != nil {
			failed++
			continue
		}

		result, err := matcher.FindMatches(cmd.Context(), img, benchTopK, nil)
		if err != nil {
			return fmt.Errorf("match failed for %s: %w", filepath.Base(path), err)
		}

		for rank, c := range result.Candidates {
			if c.Code != expected {
				continue
			}
			if rank == 0 {
				top1++
			}
			topK++
			if c.MatchedAgainst.Mirrored() {
				mirrored++
			}
			break
		}
	}

	scored := len(photos) - failed
	fmt.Printf("\nAccuracy over %d photos:\n", scored)
	if scored > 0 {
		fmt.Printf("  Top-1:  %d (%.1f%%)\n", top1, float64(top1)/float64(scored)*100)
		fmt.Printf("  Top-%d:  %d (%.1f%%)\n", benchTopK, topK, float64(topK)/float64(scored)*100)
		fmt.Printf("  Hits via mirror: %d\n", mirrored)
	}
	if failed > 0 {
		fmt.Printf("  Unreadable photos: %d\n", failed)
	}

	return nil
}
