package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"profilematch/internal/adapter/frames"
	"profilematch/internal/adapter/store"
	"profilematch/internal/domain"
	"profilematch/internal/usecase"
)

var (
	compareCode     string
	compareFrames   string
	compareExemplar bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Continuously score incoming frames against one catalog code",
	Long: `Score each frame appearing in the spool directory against the pinned
embedding for one catalog code, printing a confidence score per frame.
Advisory only: nothing is committed. Stop with Ctrl-C.

Examples:
  profilematch compare -c 10008 --frames ./spool
  profilematch compare -c 10008 --frames ./spool --exemplar`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVarP(&compareCode, "code", "c", "", "catalog code to compare against (required)")
	compareCmd.Flags().StringVar(&compareFrames, "frames", "", "frame spool directory (required)")
	compareCmd.Flags().BoolVar(&compareExemplar, "exemplar", false, "pin the newest user exemplar instead of the catalog embedding")
	compareCmd.MarkFlagRequired("code")
	compareCmd.MarkFlagRequired("frames")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	corpus, err := store.Open(cfg.StorePath(GetRootDir()))
	if err != nil {
		return fmt.Errorf("failed to open embedding store: %w", err)
	}

	target, err := pinTarget(corpus)
	if err != nil {
		return err
	}

	ext, err := buildExtractor()
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := frames.NewDirSource(compareFrames, time.Duration(cfg.Match.FrameIntervalMS)*time.Millisecond)
	comparator := usecase.NewComparator(ext, cfg.Match.CropFraction, cfg.Match.HighConfidence, log)

	fmt.Printf("Comparing frames against %s (Ctrl-C to stop)...\n", compareCode)

	err = comparator.Run(ctx, source, target, func(s usecase.Score) {
		marker := " "
		if s.HighConfidence {
			marker = "*"
		}
		fmt.Printf("  %s %5.1f%%\n", marker, s.Value*100)
	})
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	fmt.Println("Comparison stopped.")
	return nil
}

// pinTarget selects the embedding to compare frames against: the catalog
// record's, or the newest user exemplar when --exemplar is set.
func pinTarget(corpus *store.Corpus) (domain.Vector, error) {
	cfg := GetConfig()

	record, ok := corpus.Get(compareCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCode, compareCode)
	}

	if !compareExemplar {
		return record.Embedding, nil
	}

	dbPath := cfg.ExemplarDBPath(GetRootDir())
	local, err := store.NewBoltExemplarStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open exemplar store: %w", err)
	}
	defer local.Close()

	set, err := local.Get(compareCode)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no exemplars stored for %s", compareCode)
	}
	return set[len(set)-1].Embedding, nil
}
