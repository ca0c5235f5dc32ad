// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

// Package imagefile stores sprite frames as PNG files.
package imagefile

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
)

// Ext is the file extension of stored frames.
const Ext = ".png"

// Save writes img as PNG. Paletted images keep their palette and indices.
func Save(path string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("save %s: nil image", path)
	}
	if !strings.EqualFold(filepath.Ext(path), Ext) {
		return fmt.Errorf("save %s: unsupported extension, want %s", path, Ext)
	}

	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	return nil
}

// Load reads an image file.
func Load(path string) (image.Image, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return img, nil
}
