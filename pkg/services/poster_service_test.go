package services

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanPosters(t *testing.T) {
	names := []string{
		"carousel/port10.mp4",
		"carousel/port2.mp4",
		"carousel/port2.jpg",
		"carousel/field.webm",
		"carousel/harvest.png",
		"carousel/readme.txt",
	}

	jobs := PlanPosters(names, false)
	assert.Equal(t, []PosterJob{
		{Video: "carousel/field.webm", Poster: "carousel/field.jpg"},
		{Video: "carousel/port10.mp4", Poster: "carousel/port10.jpg"},
	}, jobs)

	all := PlanPosters(names, true)
	assert.Len(t, all, 3)
	assert.Equal(t, "carousel/port2.mp4", all[1].Video)
}

func TestFrameTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:01.000", FrameTimestamp(1000))
	assert.Equal(t, "00:01:05.250", FrameTimestamp(65250))
	assert.Equal(t, "01:00:00.000", FrameTimestamp(3600000))
	assert.Equal(t, "00:00:00.000", FrameTimestamp(-5))
}

func TestValidateFrame(t *testing.T) {
	solid := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			solid.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	assert.ErrorIs(t, ValidateFrame(solid), ErrSolidFrame)

	striped := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			c := color.RGBA{A: 255}
			if (x/10)%2 == 1 {
				c = color.RGBA{R: 240, G: 200, B: 40, A: 255}
			}
			striped.Set(x, y, c)
		}
	}
	assert.NoError(t, ValidateFrame(striped))
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "port.mp4", safeFilename("carousel/port.mp4?X-Goog-Signature=abc"))

	long := "carousel/" + strings.Repeat("a", 250) + ".mp4"
	got := safeFilename(long)
	assert.Less(t, len(got), 60)
	assert.True(t, strings.HasSuffix(got, ".mp4"))
	assert.Equal(t, got, safeFilename(long))
}
