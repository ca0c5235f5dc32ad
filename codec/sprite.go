// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/woozymasta/vfs/internal/cursor"
)

// GBM frame layout. Only the geometry and pixel fields are understood;
// header bytes after depth and bytes after pixels are kept opaque.
const (
	gbmHeaderSize     = 0x10
	gbmOpaqueHeaderAt = 0x05
	gbmPaletteColors  = 256
	gbmPaletteSize    = gbmPaletteColors * 4

	// GBMDepthIndexed is an 8-bit palette indexed frame.
	GBMDepthIndexed = 8
	// GBMDepthDirect is a 32-bit RGBA frame.
	GBMDepthDirect = 32
)

// SpriteBank is a list of frames of one .mgr bank.
type SpriteBank struct {
	Frames  []SpriteFrame `json:"frames"`
	Trailer Octets        `json:"trailer,omitempty"`
}

// Kind implements Resource.
func (*SpriteBank) Kind() Kind { return KindSprite }

// SpriteFrame is one GBM blob, decoded as Image when its layout is understood.
// Blob holds the raw frame otherwise.
type SpriteFrame struct {
	Image *SpriteImage `json:"image,omitempty"`
	// File is the frame file name relative to the bank directory, set by file stores.
	File string `json:"file,omitempty"`
	Blob []byte `json:"-"`
}

// SpriteImage is a decoded GBM frame.
type SpriteImage struct {
	Palette []color.NRGBA `json:"-"`
	Pixels  []byte        `json:"-"`
	Header  []OpaqueField `json:"header"`
	Opaque  []OpaqueField `json:"opaque,omitempty"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Depth   uint8         `json:"depth"`
}

// bytesPerPixel returns pixel size for depth.
func bytesPerPixel(depth uint8) int {
	switch depth {
	case GBMDepthIndexed:
		return 1
	case GBMDepthDirect:
		return 4
	default:
		return 0
	}
}

// Image returns frame pixels as *image.Paletted (depth 8) or *image.NRGBA (depth 32).
func (s *SpriteImage) Image() image.Image {
	rect := image.Rect(0, 0, s.Width, s.Height)
	if s.Depth == GBMDepthIndexed {
		pal := make(color.Palette, len(s.Palette))
		for i, c := range s.Palette {
			pal[i] = c
		}

		img := image.NewPaletted(rect, pal)
		copy(img.Pix, s.Pixels)
		return img
	}

	img := image.NewNRGBA(rect)
	copy(img.Pix, s.Pixels)
	return img
}

// SetImage replaces frame pixels with img, keeping depth. Indexed frames
// require *image.Paletted with at most 256 colors; shorter palettes are
// padded with transparent black.
func (s *SpriteImage) SetImage(img image.Image) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || w > 0xffff || h > 0xffff {
		return fmt.Errorf("image size %dx%d out of range", w, h)
	}

	switch s.Depth {
	case GBMDepthIndexed:
		p, ok := img.(*image.Paletted)
		if !ok {
			return fmt.Errorf("depth 8 frame requires a paletted image, got %T", img)
		}
		if len(p.Palette) > gbmPaletteColors {
			return fmt.Errorf("palette has %d colors, max %d", len(p.Palette), gbmPaletteColors)
		}

		pal := make([]color.NRGBA, gbmPaletteColors)
		for i, c := range p.Palette {
			pal[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
		}

		pix := make([]byte, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := p.PixOffset(b.Min.X, y)
			pix = append(pix, p.Pix[row:row+w]...)
		}

		s.Palette, s.Pixels = pal, pix
	case GBMDepthDirect:
		pix := make([]byte, 0, w*h*4)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pix = append(pix, c.R, c.G, c.B, c.A)
			}
		}

		s.Pixels = pix
	default:
		return fmt.Errorf("unsupported depth %d", s.Depth)
	}

	s.Width, s.Height = w, h
	return nil
}

// SpriteCodec handles .mgr sprite banks: u32 frame count, then per frame a
// u32 length and a GBM blob.
type SpriteCodec struct{}

// Kind implements Codec.
func (SpriteCodec) Kind() Kind { return KindSprite }

// Decode implements Codec.
func (SpriteCodec) Decode(entry string, raw []byte) (Resource, error) {
	r := cursor.NewReader(raw)
	blobs, err := readLengthArray(r, 4)
	if err != nil {
		return nil, decodeErr(entry, err, "read sprite bank")
	}

	bank := &SpriteBank{Frames: make([]SpriteFrame, 0, len(blobs))}
	for _, blob := range blobs {
		if img, ok := decodeGBM(blob); ok {
			bank.Frames = append(bank.Frames, SpriteFrame{Image: img})
			continue
		}
		bank.Frames = append(bank.Frames, SpriteFrame{Blob: blob})
	}

	if r.Remaining() > 0 {
		bank.Trailer = Octets(r.Rest())
	}

	return bank, nil
}

// Encode implements Codec.
func (SpriteCodec) Encode(entry string, res Resource) ([]byte, error) {
	bank, ok := res.(*SpriteBank)
	if !ok || bank == nil {
		return nil, wrongResource(entry, KindSprite, res)
	}

	blobs := make([][]byte, 0, len(bank.Frames))
	for i, frame := range bank.Frames {
		if frame.Image == nil {
			blobs = append(blobs, frame.Blob)
			continue
		}

		blob, err := encodeGBM(frame.Image)
		if err != nil {
			return nil, encodeErr(entry, err, "frame %d", i)
		}
		blobs = append(blobs, blob)
	}

	w := cursor.NewWriter()
	if err := putLengthArray(w, 4, blobs); err != nil {
		return nil, encodeErr(entry, err, "write sprite bank")
	}
	w.PutBytes(bank.Trailer)

	return w.Bytes(), nil
}

// decodeGBM parses a frame blob, reporting false when it does not match the layout.
func decodeGBM(blob []byte) (*SpriteImage, bool) {
	if len(blob) < gbmHeaderSize {
		return nil, false
	}

	r := cursor.NewReader(blob)
	width, _ := r.U16()
	height, _ := r.U16()
	depth, _ := r.U8()

	bpp := bytesPerPixel(depth)
	if bpp == 0 || width == 0 || height == 0 {
		return nil, false
	}

	paletteSize := 0
	if depth == GBMDepthIndexed {
		paletteSize = gbmPaletteSize
	}

	pixelsAt := gbmHeaderSize + paletteSize
	end := pixelsAt + int(width)*int(height)*bpp
	if len(blob) < end {
		return nil, false
	}

	img := &SpriteImage{
		Width:  int(width),
		Height: int(height),
		Depth:  depth,
		Header: opaqueAt("header", gbmOpaqueHeaderAt, bytes.Clone(blob[gbmOpaqueHeaderAt:gbmHeaderSize])),
		Pixels: bytes.Clone(blob[pixelsAt:end]),
		Opaque: opaqueAt("tail", end, bytes.Clone(blob[end:])),
	}

	if paletteSize > 0 {
		img.Palette = make([]color.NRGBA, gbmPaletteColors)
		for i := range img.Palette {
			p := blob[gbmHeaderSize+i*4:]
			img.Palette[i] = color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
		}
	}

	return img, true
}

// encodeGBM serializes a decoded frame.
func encodeGBM(img *SpriteImage) ([]byte, error) {
	bpp := bytesPerPixel(img.Depth)
	if bpp == 0 {
		return nil, fmt.Errorf("unsupported depth %d", img.Depth)
	}
	if img.Width <= 0 || img.Height <= 0 || img.Width > 0xffff || img.Height > 0xffff {
		return nil, fmt.Errorf("image size %dx%d out of range", img.Width, img.Height)
	}
	if want := img.Width * img.Height * bpp; len(img.Pixels) != want {
		return nil, fmt.Errorf("pixel data has %d byte(s), want %d", len(img.Pixels), want)
	}

	header := make([]byte, gbmHeaderSize)
	hw := cursor.NewWriter()
	hw.PutU16(uint16(img.Width))
	hw.PutU16(uint16(img.Height))
	hw.PutU8(img.Depth)
	copy(header, hw.Bytes())

	slots := []opaqueSlot{{offset: gbmOpaqueHeaderAt, width: gbmHeaderSize - gbmOpaqueHeaderAt}}
	if err := placeOpaque(header, img.Header, slots); err != nil {
		return nil, fmt.Errorf("frame header: %w", err)
	}

	w := cursor.NewWriter()
	w.PutBytes(header)

	if img.Depth == GBMDepthIndexed {
		if len(img.Palette) > gbmPaletteColors {
			return nil, fmt.Errorf("palette has %d colors, max %d", len(img.Palette), gbmPaletteColors)
		}
		for i := range gbmPaletteColors {
			var c color.NRGBA
			if i < len(img.Palette) {
				c = img.Palette[i]
			}
			w.PutBytes([]byte{c.R, c.G, c.B, c.A})
		}
	}

	w.PutBytes(img.Pixels)
	return appendOpaque(w.Bytes(), img.Opaque), nil
}
