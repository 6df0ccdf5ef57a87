package services

import (
	"net/url"
	"strconv"
	"strings"
)

// cmsImageHost serves CMS images and accepts resize parameters
const cmsImageHost = "images.ctfassets.net"

// NormalizeAssetURL turns a protocol-relative URL into an absolute https
// URL. Absolute and root-relative URLs are returned unchanged.
func NormalizeAssetURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// OptimizedImageURL asks the CMS image API for a resized webp rendition.
// URLs on other hosts are only normalized.
func OptimizedImageURL(raw string, width, height, quality int) string {
	normalized := NormalizeAssetURL(raw)
	u, err := url.Parse(normalized)
	if err != nil || u.Host != cmsImageHost {
		return normalized
	}

	q := u.Query()
	q.Set("w", strconv.Itoa(width))
	q.Set("h", strconv.Itoa(height))
	q.Set("q", strconv.Itoa(quality))
	q.Set("fm", "webp")
	q.Set("fit", "fill")
	u.RawQuery = q.Encode()
	return u.String()
}
