package heatmap

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadmagnet/api/aggregate"
	"leadmagnet/api/models"
)

func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestOpacity(t *testing.T) {
	assert.Equal(t, 0.0, Opacity(0, 100))
	assert.Equal(t, 0.0, Opacity(10, 0))
	assert.InDelta(t, 0.35, Opacity(50, 100), 1e-9)
	assert.InDelta(t, MaxAlpha, Opacity(100, 100), 1e-9)
	assert.InDelta(t, MaxAlpha, Opacity(150, 100), 1e-9, "never above the cap")
}

func TestRender_MergedBinsOpacityFollowsTime(t *testing.T) {
	bins := aggregate.MergePixelBins([]models.PixelBin{
		{Y: 0, TimeSpent: 10},
		{Y: 0, TimeSpent: 5},
		{Y: 25, TimeSpent: 20},
	})
	require.Equal(t, []models.PixelBin{{Y: 0, TimeSpent: 15}, {Y: 25, TimeSpent: 20}}, bins)
	assert.Greater(t, Opacity(20, 20), Opacity(15, 20))

	res := Render(whitePage(100, 100), bins)
	require.False(t, res.Placeholder)
	assert.Equal(t, image.Rect(0, 0, 100, 100), res.Image.Bounds())

	top := res.Image.RGBAAt(50, 5)
	second := res.Image.RGBAAt(50, 30)
	untouched := res.Image.RGBAAt(50, 80)

	assert.Equal(t, uint8(255), top.R)
	assert.Less(t, second.G, top.G, "more time draws a stronger band")
	assert.Less(t, top.G, uint8(255))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, untouched)
}

func TestRender_BandsOutsideImageAreClipped(t *testing.T) {
	res := Render(whitePage(40, 40), []models.PixelBin{{Y: 500, TimeSpent: 10}, {Y: 25, TimeSpent: 10}})
	require.False(t, res.Placeholder)
	assert.Less(t, res.Image.RGBAAt(0, 39).G, uint8(255))
}

func TestRender_Placeholder(t *testing.T) {
	t.Run("no reference", func(t *testing.T) {
		res := Render(nil, []models.PixelBin{{Y: 0, TimeSpent: 10}})
		assert.True(t, res.Placeholder)
		assert.Equal(t, image.Rect(0, 0, 800, 600), res.Image.Bounds())
	})

	t.Run("no bins", func(t *testing.T) {
		res := Render(whitePage(320, 480), nil)
		assert.True(t, res.Placeholder)
		assert.Equal(t, image.Rect(0, 0, 320, 480), res.Image.Bounds())
	})
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(Render(nil, nil))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestDirScreenshots(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "doc-1.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, whitePage(64, 128)))
	require.NoError(t, f.Close())

	src := DirScreenshots{Dir: dir}

	img, err := src.Screenshot("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dy())

	_, err = src.Screenshot("doc-2")
	assert.ErrorIs(t, err, ErrNoScreenshot)

	_, err = src.Screenshot("../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoScreenshot)

	_, err = DirScreenshots{}.Screenshot("doc-1")
	assert.ErrorIs(t, err, ErrNoScreenshot)
}
