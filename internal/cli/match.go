package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"profilematch/internal/adapter/imaging"
	"profilematch/internal/adapter/store"
	syncadapter "profilematch/internal/adapter/sync"
	"profilematch/internal/domain"
	"profilematch/internal/usecase"
)

var (
	matchImage string
	matchTopK  int
	matchJSON  bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank catalog codes against a part photo",
	Long: `Embed a photo (original and horizontally mirrored) and rank every catalog
code by cosine similarity, including user-contributed exemplars when
available.

Examples:
  profilematch match -i part.jpg
  profilematch match -i part.jpg --top-k 10 --json`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().StringVarP(&matchImage, "image", "i", "", "query photo (required)")
	matchCmd.Flags().IntVarP(&matchTopK, "top-k", "k", 0, "number of results (default from config)")
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "output as JSON")
	matchCmd.MarkFlagRequired("image")
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	img, err := imaging.Decode(matchImage)
	if err != nil {
		return fmt.Errorf("failed to load query photo: %w", err)
	}

	ext, err := buildExtractor()
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	res := usecase.NewResources(ext, cfg.StorePath(GetRootDir()), log)
	matcher := usecase.NewMatcher(res, log)

	exemplars, err := loadExemplars(cmd.Context())
	if err != nil {
		// Exemplars enrich matching but are not required for it.
		log.Warn("continuing without exemplars: " + err.Error())
		exemplars = nil
	}

	topK := cfg.Match.TopK
	if matchTopK > 0 {
		topK = matchTopK
	}

	result, err := matcher.FindMatches(cmd.Context(), img, topK, exemplars)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	if matchJSON {
		output, _ := json.MarshalIndent(result.Candidates, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(result.Candidates) == 0 {
		fmt.Println("Catalog is empty - run 'profilematch index' first.")
		return nil
	}

	fmt.Printf("Top %d matches for %s:\n\n", len(result.Candidates), matchImage)
	for i, c := range result.Candidates {
		fmt.Printf("  [%d] %-12s %5.1f%%  (%s)\n", i+1, c.Code, c.Score*100, c.MatchedAgainst)
	}

	return nil
}

// loadExemplars fetches remote captures when sync is enabled, otherwise
// falls back to the local exemplar cache. The remote store is the shared
// source of truth across devices.
func loadExemplars(ctx context.Context) (map[string]domain.ExemplarSet, error) {
	cfg := GetConfig()

	if cfg.Sync.Enabled {
		client, err := syncadapter.NewClient(cfg.Sync.BaseURL, cfg.Sync.APIKeyEnv,
			time.Duration(cfg.Sync.PollSeconds)*time.Second, log)
		if err != nil {
			return nil, err
		}
		rows, err := client.FetchAll(ctx)
		if err != nil {
			return nil, err
		}
		return syncadapter.ExemplarMap(rows), nil
	}

	dbPath := cfg.ExemplarDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}
	local, err := store.NewBoltExemplarStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer local.Close()
	return local.All()
}
