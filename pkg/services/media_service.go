package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"google.golang.org/api/iterator"
	"gopkg.in/yaml.v3"

	"export-site/pkg/catalog"
	"export-site/pkg/config"
	"export-site/pkg/models"
)

const playlistCacheKey = "playlist"

// PlaylistSource provides the carousel media
type PlaylistSource interface {
	Playlist(ctx context.Context) ([]models.MediaItem, error)
}

// NewPlaylistSource picks the bucket when one is configured and the
// playlist file otherwise. Results are cached for the configured duration.
func NewPlaylistSource(cfg *config.Config) *CachedPlaylist {
	var src PlaylistSource = FilePlaylist{Path: cfg.PlaylistFile}
	if cfg.BucketName != "" {
		src = BucketPlaylist{Bucket: cfg.BucketName, Prefix: cfg.CarouselPrefix}
	}
	return NewCachedPlaylist(src, cfg.CacheDuration)
}

// FilePlaylist reads the playlist from a YAML file
type FilePlaylist struct {
	Path string
}

type playlistFile struct {
	Items []models.MediaItem `yaml:"items"`
}

// Playlist implements PlaylistSource
func (f FilePlaylist) Playlist(_ context.Context) ([]models.MediaItem, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist file: %w", err)
	}

	var file playlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse playlist file %s: %w", f.Path, err)
	}

	items := make([]models.MediaItem, 0, len(file.Items))
	for _, item := range file.Items {
		if strings.TrimSpace(item.URL) == "" {
			slog.Warn("Skipping playlist item without url", slog.String("file", f.Path))
			continue
		}
		items = append(items, normalizeItem(item))
	}
	return items, nil
}

// BucketPlaylist lists carousel media from a storage bucket. A video and an
// image sharing a base name become one video slide with that poster.
type BucketPlaylist struct {
	Bucket string
	Prefix string
}

// Playlist implements PlaylistSource
func (b BucketPlaylist) Playlist(ctx context.Context) ([]models.MediaItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	defer client.Close()

	bucket := client.Bucket(b.Bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: b.Prefix})

	type slide struct {
		base  string
		video string
		image string
	}
	slides := make(map[string]*slide)

	for {
		obj, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating objects: %w", err)
		}

		name := strings.TrimPrefix(obj.Name, b.Prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		isVideo := models.HasExtension(name, models.VideoExtensions)
		isImage := models.HasExtension(name, models.ImageExtensions)
		if !isVideo && !isImage {
			continue
		}

		signedURL, err := bucket.SignedURL(obj.Name, &storage.SignedURLOptions{
			Expires: time.Now().Add(24 * time.Hour),
			Method:  "GET",
		})
		if err != nil {
			slog.Warn("Error creating signed URL", slog.String("object", obj.Name), slog.Any("error", err))
			continue
		}

		base := strings.TrimSuffix(name, path.Ext(name))
		s, ok := slides[base]
		if !ok {
			s = &slide{base: base}
			slides[base] = s
		}
		if isVideo {
			s.video = signedURL
		} else {
			s.image = signedURL
		}
	}

	bases := make([]string, 0, len(slides))
	for base := range slides {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool {
		return catalog.NaturalLess(bases[i], bases[j])
	})

	items := make([]models.MediaItem, 0, len(bases))
	for _, base := range bases {
		s := slides[base]
		alt := strings.ReplaceAll(s.base, "_", " ")
		if s.video != "" {
			items = append(items, models.MediaItem{URL: s.video, Kind: models.KindVideo, AltText: alt, PosterURL: s.image})
			continue
		}
		items = append(items, models.MediaItem{URL: s.image, Kind: models.KindImage, AltText: alt})
	}

	slog.Info("Listed carousel media", slog.String("bucket", b.Bucket), slog.Int("count", len(items)))
	return items, nil
}

// CachedPlaylist keeps the result of another source for a while
type CachedPlaylist struct {
	source PlaylistSource
	cache  *cache.Cache
}

// NewCachedPlaylist wraps source with a cache of the given expiration
func NewCachedPlaylist(source PlaylistSource, expiration time.Duration) *CachedPlaylist {
	if expiration <= 0 {
		expiration = 5 * time.Minute
	}
	return &CachedPlaylist{source: source, cache: cache.New(expiration, 2*expiration)}
}

// Playlist implements PlaylistSource
func (c *CachedPlaylist) Playlist(ctx context.Context) ([]models.MediaItem, error) {
	if cached, found := c.cache.Get(playlistCacheKey); found {
		return cached.([]models.MediaItem), nil
	}
	items, err := c.source.Playlist(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(playlistCacheKey, items, cache.DefaultExpiration)
	return items, nil
}

// Invalidate drops the cached playlist
func (c *CachedPlaylist) Invalidate() {
	c.cache.Delete(playlistCacheKey)
}

// Fingerprint identifies a playlist by the media it shows. Signed URLs
// change on every listing, so query strings are left out.
func Fingerprint(items []models.MediaItem) uint64 {
	d := xxhash.New()
	for _, item := range items {
		d.WriteString(stripQuery(item.URL))
		d.WriteString("\x00")
		d.WriteString(string(item.ResolvedKind()))
		d.WriteString("\x00")
		d.WriteString(stripQuery(item.PosterURL))
		d.WriteString("\x00")
		d.WriteString(item.AltText)
		d.WriteString("\x01")
	}
	return d.Sum64()
}

func normalizeItem(item models.MediaItem) models.MediaItem {
	item.URL = NormalizeAssetURL(item.URL)
	item.PosterURL = NormalizeAssetURL(item.PosterURL)
	item.Kind = item.ResolvedKind()
	return item
}

func stripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i != -1 {
		return raw[:i]
	}
	return raw
}
