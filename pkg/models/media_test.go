package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaItem_ResolvedKind(t *testing.T) {
	tests := []struct {
		name string
		item MediaItem
		want MediaKind
	}{
		{"explicit video", MediaItem{URL: "/clip", Kind: KindVideo}, KindVideo},
		{"explicit image wins over extension", MediaItem{URL: "/still.mp4", Kind: KindImage}, KindImage},
		{"explicit kind is case insensitive", MediaItem{URL: "/clip", Kind: "Video"}, KindVideo},
		{"mp4 suffix", MediaItem{URL: "/carousel/acucar.mp4"}, KindVideo},
		{"upper case suffix", MediaItem{URL: "/carousel/ACUCAR.MP4"}, KindVideo},
		{"query string ignored", MediaItem{URL: "https://cdn.example.com/a.webm?sig=abc.jpg"}, KindVideo},
		{"signed image url", MediaItem{URL: "https://cdn.example.com/a.jpeg?x=1.mp4"}, KindImage},
		{"mime hint", MediaItem{URL: "https://cdn.example.com/asset/123", MimeType: "video/mp4"}, KindVideo},
		{"unknown kind falls back to sniffing", MediaItem{URL: "/a.mov", Kind: "hologram"}, KindVideo},
		{"no extension", MediaItem{URL: "/carousel/project"}, KindImage},
		{"empty", MediaItem{}, KindImage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.item.ResolvedKind())
		})
	}
}

func TestCategory_ProductCount(t *testing.T) {
	c := Category{Subcategories: []Subcategory{
		{Products: []Product{{Name: "a"}, {Name: "b"}}},
		{Products: []Product{{Name: "c"}}},
		{},
	}}
	assert.Equal(t, 3, c.ProductCount())
}
