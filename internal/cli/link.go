package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"profilematch/config"
	"profilematch/internal/adapter/imaging"
	"profilematch/internal/adapter/store"
	syncadapter "profilematch/internal/adapter/sync"
	"profilematch/internal/port"
	"profilematch/internal/usecase"
)

var (
	linkImage string
	linkCode  string
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Commit a captured photo as a user exemplar for a catalog code",
	Long: `Attach a captured photo's embedding to a catalog code. The code tolerates
cosmetic variants ("10.008" matches "10008"); when several catalog codes
share the same numeric core, all of them are listed and the exact code must
be re-entered.

Examples:
  profilematch link -i capture.jpg -c 10.008`,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.Flags().StringVarP(&linkImage, "image", "i", "", "captured photo (required)")
	linkCmd.Flags().StringVarP(&linkCode, "code", "c", "", "catalog code, exact or cosmetic variant (required)")
	linkCmd.MarkFlagRequired("image")
	linkCmd.MarkFlagRequired("code")
}

func runLink(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	corpus, err := store.Open(cfg.StorePath(GetRootDir()))
	if err != nil {
		return fmt.Errorf("failed to open embedding store: %w", err)
	}

	if err := config.EnsureDataDir(GetRootDir()); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	local, err := store.NewBoltExemplarStore(cfg.ExemplarDBPath(GetRootDir()))
	if err != nil {
		return fmt.Errorf("failed to open exemplar store: %w", err)
	}
	defer local.Close()

	var remote port.ExemplarSync
	if cfg.Sync.Enabled {
		client, err := syncadapter.NewClient(cfg.Sync.BaseURL, cfg.Sync.APIKeyEnv,
			time.Duration(cfg.Sync.PollSeconds)*time.Second, log)
		if err != nil {
			return fmt.Errorf("failed to create sync client: %w", err)
		}
		remote = client
	}

	linker := usecase.NewLinker(corpus, local, remote, log)

	candidates := linker.Resolve(linkCode)
	switch len(candidates) {
	case 0:
		return fmt.Errorf("no catalog code matches %q", linkCode)
	case 1:
		// Unambiguous: commit directly.
	default:
		fmt.Printf("%q matches several catalog codes:\n\n", linkCode)
		for i, c := range candidates {
			fmt.Printf("  [%d] %s\n", i+1, c.Code)
		}
		fmt.Println("\nRe-run with the exact code.")
		return nil
	}
	code := candidates[0].Code

	// Embed the full-resolution capture, not a preview.
	img, err := imaging.Decode(linkImage)
	if err != nil {
		return fmt.Errorf("failed to load capture: %w", err)
	}

	ext, err := buildExtractor()
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	sized := imaging.Fit(img, ext.InputSize())
	embedding, err := ext.Embed(ctx, sized)
	if err != nil {
		return fmt.Errorf("failed to embed capture: %w", err)
	}

	jpegBytes, err := imaging.EncodeJPEG(sized, 90)
	if err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}

	imageURL, err := linker.Commit(ctx, code, jpegBytes, embedding)
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	fmt.Printf("Exemplar committed for %s", code)
	if imageURL != "" {
		fmt.Printf(" (%s)", imageURL)
	}
	fmt.Println()
	return nil
}
