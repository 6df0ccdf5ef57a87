package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"export-site/pkg/catalog"
	"export-site/pkg/models"
)

const (
	// colorDifferenceThreshold is the smallest per-channel difference counted
	// as a different color, which lets compression noise through
	colorDifferenceThreshold = 256
	// solidColorRatio is the share of sampled pixels that must differ from
	// the first one for a frame to count as a picture
	solidColorRatio = 0.01
)

// ErrSolidFrame is returned when an extracted frame is a single color
var ErrSolidFrame = errors.New("frame appears to be a solid color")

// PosterOptions controls poster generation for carousel videos
type PosterOptions struct {
	Bucket    string
	Prefix    string
	WorkDir   string
	FrameMs   int
	MaxSizeMB int
	Force     bool
}

// PosterResult summarizes a generation run
type PosterResult struct {
	Videos    int
	Missing   int
	Generated int
	Skipped   int
	Failed    int
}

// PosterJob is a video that needs a poster
type PosterJob struct {
	Video  string
	Poster string
	Size   int64
}

// GeneratePosters extracts a still frame for every carousel video without a
// matching image and uploads it next to the video
func GeneratePosters(ctx context.Context, opts PosterOptions) (PosterResult, error) {
	var result PosterResult
	if err := checkFFmpeg(); err != nil {
		return result, fmt.Errorf("FFmpeg is required but not found: %w", err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "carousel-posters")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create work directory: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to create storage client: %w", err)
	}
	defer client.Close()
	bucket := client.Bucket(opts.Bucket)

	sizes := make(map[string]int64)
	it := bucket.Objects(ctx, &storage.Query{Prefix: opts.Prefix})
	for {
		obj, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("error iterating objects: %w", err)
		}
		sizes[obj.Name] = obj.Size
	}

	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	jobs := PlanPosters(names, opts.Force)
	for name := range sizes {
		if models.HasExtension(name, models.VideoExtensions) {
			result.Videos++
		}
	}
	result.Missing = len(jobs)

	for _, job := range jobs {
		job.Size = sizes[job.Video]
		if opts.MaxSizeMB > 0 && job.Size/(1024*1024) > int64(opts.MaxSizeMB) {
			slog.Info("Skipping large video",
				slog.String("video", job.Video),
				slog.Int64("size_mb", job.Size/(1024*1024)))
			result.Skipped++
			continue
		}
		if err := makePoster(ctx, bucket, workDir, job, opts.FrameMs); err != nil {
			slog.Warn("Poster generation failed", slog.String("video", job.Video), slog.Any("error", err))
			result.Failed++
			continue
		}
		slog.Info("Created poster", slog.String("poster", job.Poster))
		result.Generated++
	}
	return result, nil
}

// PlanPosters returns one job per video that has no image with the same
// base name, or per video when force is set. Jobs come in natural order.
func PlanPosters(names []string, force bool) []PosterJob {
	images := make(map[string]bool)
	for _, name := range names {
		if models.HasExtension(name, models.ImageExtensions) {
			images[strings.TrimSuffix(name, path.Ext(name))] = true
		}
	}

	var jobs []PosterJob
	for _, name := range names {
		if !models.HasExtension(name, models.VideoExtensions) {
			continue
		}
		base := strings.TrimSuffix(name, path.Ext(name))
		if images[base] && !force {
			continue
		}
		jobs = append(jobs, PosterJob{Video: name, Poster: base + ".jpg"})
	}
	sort.Slice(jobs, func(i, j int) bool {
		return catalog.NaturalLess(jobs[i].Video, jobs[j].Video)
	})
	return jobs
}

func makePoster(ctx context.Context, bucket *storage.BucketHandle, workDir string, job PosterJob, frameMs int) error {
	videoFile := filepath.Join(workDir, safeFilename(job.Video))
	if err := downloadObject(ctx, bucket, job.Video, videoFile); err != nil {
		return fmt.Errorf("error downloading video: %w", err)
	}
	defer os.Remove(videoFile)

	frameFile := filepath.Join(workDir, safeFilename(job.Poster))
	if err := extractFrame(ctx, videoFile, frameFile, frameMs); err != nil {
		return err
	}
	defer os.Remove(frameFile)

	if err := validateFrameFile(frameFile); err != nil {
		return err
	}
	if err := uploadPoster(ctx, bucket, frameFile, job.Poster); err != nil {
		return fmt.Errorf("error uploading poster: %w", err)
	}
	return nil
}

func checkFFmpeg() error {
	cmd := exec.Command("ffmpeg", "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not found or not working: %w", err)
	}
	return nil
}

// FrameTimestamp formats milliseconds the way ffmpeg -ss expects
func FrameTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", total/3600, (total%3600)/60, total%60, ms%1000)
}

func extractFrame(ctx context.Context, videoFile, frameFile string, frameMs int) error {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-ss", FrameTimestamp(frameMs),
		"-i", videoFile,
		"-vf", "thumbnail",
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		frameFile,
	)

	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	return nil
}

func downloadObject(ctx context.Context, bucket *storage.BucketHandle, src, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("os.Create: %w", err)
	}
	defer f.Close()

	reader, err := bucket.Object(strings.TrimPrefix(src, "/")).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("Object(%q).NewReader: %w", src, err)
	}
	defer reader.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("io.Copy: %w", err)
	}
	return nil
}

func uploadPoster(ctx context.Context, bucket *storage.BucketHandle, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("os.ReadFile: %w", err)
	}

	writer := bucket.Object(strings.TrimPrefix(dst, "/")).NewWriter(ctx)
	writer.ContentType = "image/jpeg"
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("Writer.Write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}
	return nil
}

func validateFrameFile(frameFile string) error {
	f, err := os.Open(frameFile)
	if err != nil {
		return fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	return ValidateFrame(img)
}

// ValidateFrame samples a 10x10 grid and rejects images where almost every
// sample matches the top-left pixel
func ValidateFrame(img image.Image) error {
	bounds := img.Bounds()
	stepX := max(bounds.Dx()/10, 1)
	stepY := max(bounds.Dy()/10, 1)

	r1, g1, b1, a1 := img.At(bounds.Min.X, bounds.Min.Y).RGBA()
	different, total := 0, 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			total++
			r2, g2, b2, a2 := img.At(x, y).RGBA()
			if channelDiff(r1, r2) || channelDiff(g1, g2) || channelDiff(b1, b2) || channelDiff(a1, a2) {
				different++
			}
		}
	}

	if total > 0 && float64(different)/float64(total) < solidColorRatio {
		return fmt.Errorf("%w (only %d/%d sampled pixels differ)", ErrSolidFrame, different, total)
	}
	return nil
}

func channelDiff(a, b uint32) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d > colorDifferenceThreshold
}

// safeFilename keeps local work files short and free of path separators
func safeFilename(name string) string {
	if idx := strings.Index(name, "?"); idx != -1 {
		name = name[:idx]
	}
	base := filepath.Base(name)
	if len(base) <= 200 {
		return base
	}

	hash := sha256.Sum256([]byte(name))
	short := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, base[:20])
	return fmt.Sprintf("%s-%s%s", short, hex.EncodeToString(hash[:8]), filepath.Ext(base))
}
