package models

import (
	"path"
	"strings"
)

// MediaKind distinguishes still images from video clips
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// VideoExtensions are the file suffixes treated as video when no kind is given
var VideoExtensions = []string{".mp4", ".m4v", ".webm", ".mov", ".avi"}

// ImageExtensions are the file suffixes treated as still images
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// MediaItem is a single slide of the carousel
type MediaItem struct {
	URL       string    `json:"url" yaml:"url"`
	Kind      MediaKind `json:"type,omitempty" yaml:"type"`
	AltText   string    `json:"alt" yaml:"alt"`
	PosterURL string    `json:"poster,omitempty" yaml:"poster"`
	Caption   string    `json:"caption,omitempty" yaml:"caption"`
	MimeType  string    `json:"-" yaml:"mime"`
}

// ResolvedKind returns the explicit kind when set, otherwise one inferred
// from the MIME type or the URL extension. Unknown media is an image.
func (m MediaItem) ResolvedKind() MediaKind {
	switch MediaKind(strings.ToLower(string(m.Kind))) {
	case KindVideo:
		return KindVideo
	case KindImage:
		return KindImage
	}
	if strings.HasPrefix(strings.ToLower(m.MimeType), "video/") {
		return KindVideo
	}
	if HasExtension(m.URL, VideoExtensions) {
		return KindVideo
	}
	return KindImage
}

// IsVideo reports whether the item resolves to a video
func (m MediaItem) IsVideo() bool {
	return m.ResolvedKind() == KindVideo
}

// HasExtension reports whether the path part of rawURL ends in one of exts.
// Query strings and fragments are ignored and the match is case-insensitive.
func HasExtension(rawURL string, exts []string) bool {
	if i := strings.IndexAny(rawURL, "?#"); i != -1 {
		rawURL = rawURL[:i]
	}
	ext := strings.ToLower(path.Ext(rawURL))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
