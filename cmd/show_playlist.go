package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"export-site/pkg/models"
	"export-site/pkg/services"
)

// newShowPlaylistCmd creates a new command for showing the carousel playlist
func newShowPlaylistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-playlist",
		Short: "Show the carousel playlist",
		Long:  `Show the media the home page carousel cycles through, read from the bucket or the playlist file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadMediaConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			items, err := services.NewPlaylistSource(cfg).Playlist(cmd.Context())
			if err != nil {
				return err
			}
			printPlaylist(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

// printPlaylist displays every slide of the playlist
func printPlaylist(w io.Writer, items []models.MediaItem) {
	fmt.Fprintf(w, "Carousel: %d items (fingerprint %016x)\n", len(items), services.Fingerprint(items))
	fmt.Fprintln(w, "================")

	for i, item := range items {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, item.ResolvedKind(), item.URL)
		if item.AltText != "" {
			fmt.Fprintf(w, "   Alt: %s\n", item.AltText)
		}
		if item.PosterURL != "" {
			fmt.Fprintf(w, "   Poster: %s\n", item.PosterURL)
		}
	}
}
