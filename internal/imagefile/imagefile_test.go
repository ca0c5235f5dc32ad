// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package imagefile

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadPalettedKeepsIndices(t *testing.T) {
	t.Parallel()

	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.NRGBA{R: uint8(i), G: uint8(255 - i), B: 7, A: 255}
	}
	pal[3] = color.NRGBA{R: 10, G: 20, B: 30, A: 128}

	src := image.NewPaletted(image.Rect(0, 0, 3, 2), pal)
	copy(src.Pix, []byte{0, 3, 255, 17, 3, 1})

	path := filepath.Join(t.TempDir(), "000.png")
	require.NoError(t, Save(path, src))

	got, err := Load(path)
	require.NoError(t, err)

	p, ok := got.(*image.Paletted)
	require.True(t, ok, "loaded %T, want *image.Paletted", got)
	assert.Equal(t, src.Pix, p.Pix)
	require.Len(t, p.Palette, 256)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 128}, color.NRGBAModel.Convert(p.Palette[3]))
	assert.Equal(t, color.NRGBA{R: 17, G: 238, B: 7, A: 255}, color.NRGBAModel.Convert(p.Palette[17]))
}

func TestSaveLoadNRGBA(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	copy(src.Pix, []byte{1, 2, 3, 4, 200, 100, 50, 255})

	path := filepath.Join(t.TempDir(), "001.png")
	require.NoError(t, Save(path, src))

	got, err := Load(path)
	require.NoError(t, err)

	for x := range 2 {
		assert.Equal(t, src.NRGBAAt(x, 0), color.NRGBAModel.Convert(got.At(x, 0)))
	}
}

func TestSaveRejectsOtherExtensions(t *testing.T) {
	t.Parallel()

	err := Save(filepath.Join(t.TempDir(), "frame.jpg"), image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	require.Error(t, err)

	err = Save(filepath.Join(t.TempDir(), "frame.png"), nil)
	require.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}
