package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"profilematch/config"
	"profilematch/internal/adapter/extractor"
	"profilematch/internal/logger"
	"profilematch/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "profilematch",
	Short: "Visual catalog matching - index part photos and rank candidate references",
	Long: `profilematch indexes a catalog of part photos into an embedding store and
ranks catalog codes against a query photo, including mirrored-orientation
matches and user-contributed exemplars.

Example usage:
  profilematch index ./public           # Index catalog images
  profilematch match -i part.jpg        # Rank catalog codes for a photo
  profilematch link -i part.jpg -c 10.008  # Commit a capture as an exemplar
  profilematch compare -c 10008 --frames ./spool  # Live confirmation scores`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err = logger.New(cfg.Logging.Env, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./profilematch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// buildExtractor creates the configured feature extractor.
func buildExtractor() (port.Extractor, error) {
	e := cfg.Extractor
	switch e.Provider {
	case "http":
		return extractor.NewHTTPExtractor(e.BaseURL, e.Model, e.APIKeyEnv,
			e.Dimension, e.InputSize, time.Duration(e.TimeoutSeconds)*time.Second, log)
	case "mock":
		return extractor.NewMockExtractor(e.Dimension, e.InputSize), nil
	default:
		return nil, fmt.Errorf("unsupported extractor provider: %s", e.Provider)
	}
}
