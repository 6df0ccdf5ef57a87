package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"export-site/pkg/services"
)

// newGeneratePostersCmd creates a new command for generating video posters
func newGeneratePostersCmd() *cobra.Command {
	var opts services.PosterOptions

	cmd := &cobra.Command{
		Use:   "generate-posters",
		Short: "Generate posters for carousel videos without one",
		Long: `Extract a still frame with FFmpeg for every carousel video in the bucket that has no
image of the same name, and upload it as <name>.jpg next to the video.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only the bucket is needed here, not the CMS credentials
			cfg, err := LoadMediaConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.BucketName == "" {
				return errors.New("BUCKET_NAME environment variable not set")
			}
			opts.Bucket = cfg.BucketName
			opts.Prefix = cfg.CarouselPrefix

			fmt.Fprintln(cmd.OutOrStdout(), "Scanning bucket for videos without posters...")
			result, err := services.GeneratePosters(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printPosterSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.WorkDir, "work-dir", "o", "", "Directory for temporary files (defaults to the system temp dir)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Regenerate posters even if they exist")
	cmd.Flags().IntVarP(&opts.FrameMs, "time", "t", 1000, "Time in milliseconds where to extract the frame")
	cmd.Flags().IntVarP(&opts.MaxSizeMB, "max-size", "m", 1024, "Maximum video size in MB to process (0 means no limit)")

	return cmd
}

func printPosterSummary(w io.Writer, r services.PosterResult) {
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Total videos: %d\n", r.Videos)
	fmt.Fprintf(w, "  Videos without posters: %d\n", r.Missing)
	fmt.Fprintf(w, "  Posters generated: %d\n", r.Generated)
	fmt.Fprintf(w, "  Skipped (too large): %d\n", r.Skipped)
	fmt.Fprintf(w, "  Failed: %d\n", r.Failed)
}
