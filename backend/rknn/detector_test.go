package rknn

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-alpr"
	"github.com/swdee/go-rknnlite/postprocess"
)

func TestToDetections(t *testing.T) {
	got := toDetections([]postprocess.DetectResult{
		{Class: 2, Box: postprocess.BoxRect{Left: 10, Top: 20, Right: 110, Bottom: 90}, Probability: 0.75},
		{Class: 7, Box: postprocess.BoxRect{Left: 200, Top: 50, Right: 400, Bottom: 300}, Probability: 0.5},
	})

	assert.Equal(t, []alpr.Detection{
		{Box: image.Rect(10, 20, 110, 90), Score: 0.75, Class: 2},
		{Box: image.Rect(200, 50, 400, 300), Score: 0.5, Class: 7},
	}, got)

	assert.Empty(t, toDetections(nil))
}
