package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"export-site/pkg/config"
)

// Configuration flags
var (
	spaceID      string
	accessToken  string
	bucketName   string
	portNumber   string
	playlistFile string
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "export-site",
		Short: "Export Site serves the product catalog and media carousel",
		Long: `Export Site is a command line application that serves a product catalog
published in a headless CMS together with a home page media carousel. It can
also inspect and export the catalog and prepare carousel media.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadDotEnv()
		},
	}

	// Define persistent flags that will be available for all commands
	rootCmd.PersistentFlags().StringVar(&spaceID, "space", "", "Set the CMS_SPACE_ID (overrides environment variable)")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", "", "Set the CMS_ACCESS_TOKEN (overrides environment variable)")
	rootCmd.PersistentFlags().StringVarP(&bucketName, "bucket", "b", "", "Set the BUCKET_NAME (overrides environment variable)")
	rootCmd.PersistentFlags().StringVarP(&portNumber, "port", "p", "", "Set the PORT (overrides environment variable)")
	rootCmd.PersistentFlags().StringVar(&playlistFile, "playlist", "", "Set the PLAYLIST_FILE (overrides environment variable)")

	// Add commands to root
	rootCmd.AddCommand(newListCategoriesCmd())
	rootCmd.AddCommand(newListProductsCmd())
	rootCmd.AddCommand(newShowPlaylistCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGeneratePostersCmd())

	return rootCmd
}

// LoadConfig loads configuration with respect to command line flags
func LoadConfig() (*config.Config, error) {
	applyFlags()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return cfg, nil
}

// LoadMediaConfig loads configuration for commands that never talk to the CMS
func LoadMediaConfig() (*config.Config, error) {
	applyFlags()
	cfg, err := config.LoadOptional()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return cfg, nil
}

func applyFlags() {
	// Set environment variables from flags if provided
	flags := map[string]string{
		"CMS_SPACE_ID":     spaceID,
		"CMS_ACCESS_TOKEN": accessToken,
		"BUCKET_NAME":      bucketName,
		"PORT":             portNumber,
		"PLAYLIST_FILE":    playlistFile,
	}
	for key, value := range flags {
		if value != "" {
			os.Setenv(key, value)
		}
	}
}

func setupLogging(cfg *config.Config) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.GetLogLevel()})
	slog.SetDefault(slog.New(handler))
}

func loadDotEnv() {
	if err := LoadDotEnv(); err != nil {
		slog.Warn("Failed to load .env file", slog.Any("error", err))
	}
}

// LoadDotEnv loads files into the environment, .env when none are given.
// Missing files are not an error; unreadable or malformed ones are.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
