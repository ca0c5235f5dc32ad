// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneEntry = "c/map/00001.scn"

// sampleScene builds a scene with widths 1, 2, 1.
func sampleScene() []byte {
	header := append([]byte{1, 2, 1}, bytes.Repeat([]byte{9}, 12)...)
	return cat(
		header,
		[]byte{2, 2, 1, 1, 2, 3},
		[]byte{1, 3, 0, 4, 5, 6},
		[]byte{2, 4, 4, 'I', 'n', 'n', 0, 'H', 'i', 0, 0x7f},
	)
}

func TestDialogueCodecRoundTrip(t *testing.T) {
	t.Parallel()

	raw := sampleScene()
	res, err := DialogueCodec{}.Decode(sceneEntry, raw)
	require.NoError(t, err)

	script, ok := res.(*DialogueScript)
	require.True(t, ok)
	assert.Equal(t, [3]uint8{1, 2, 1}, script.Widths)
	assert.Equal(t, []OpaqueField{{Name: "header", Offset: 3, Data: Octets(bytes.Repeat([]byte{9}, 12))}}, script.Header)
	assert.Equal(t, []Octets{{1, 2}, {3}}, script.Control[0])
	assert.Equal(t, []Octets{{4, 5, 6}}, script.Control[1])
	require.Len(t, script.Lines, 2)
	assert.Equal(t, DialogueLine{ID: 0, Text: "Inn"}, script.Lines[0])
	assert.Equal(t, "Hi", script.Lines[1].Text)
	assert.Equal(t, []OpaqueField{{Name: "tail", Offset: 3, Data: Octets{0x7f}}}, script.Lines[1].Opaque)

	out, err := DialogueCodec{}.Encode(sceneEntry, script)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestDialogueCodecEditLine(t *testing.T) {
	t.Parallel()

	res, err := DialogueCodec{}.Decode(sceneEntry, sampleScene())
	require.NoError(t, err)

	script := res.(*DialogueScript)
	script.Lines[1].Text = "Welcome, traveler"

	out, err := DialogueCodec{}.Encode(sceneEntry, script)
	require.NoError(t, err)

	back, err := DialogueCodec{}.Decode(sceneEntry, out)
	require.NoError(t, err)
	assert.Equal(t, "Welcome, traveler", back.(*DialogueScript).Lines[1].Text)
	assert.Equal(t, script.Control, back.(*DialogueScript).Control)

	// A line longer than an 8-bit length can describe must fail.
	script.Lines[1].Text = strings.Repeat("x", 300)
	_, err = DialogueCodec{}.Encode(sceneEntry, script)
	var ee *EncodeError
	assert.ErrorAs(t, err, &ee)
}

func TestDialogueCodecMalformed(t *testing.T) {
	t.Parallel()

	badWidth := sampleScene()
	badWidth[0] = 3

	unterminated := sampleScene()
	unterminated[len(unterminated)-2] = 'x'

	testCases := []struct {
		name string
		raw  []byte
	}{
		{name: "short header", raw: []byte{1, 1, 1}},
		{name: "bad width", raw: badWidth},
		{name: "unterminated line", raw: unterminated},
		{name: "truncated block", raw: sampleScene()[:20]},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := DialogueCodec{}.Decode(sceneEntry, tc.raw)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestDialogueCodecEncodeErrors(t *testing.T) {
	t.Parallel()

	res, err := DialogueCodec{}.Decode(sceneEntry, sampleScene())
	require.NoError(t, err)
	script := res.(*DialogueScript)

	badWidth := *script
	badWidth.Widths = [3]uint8{0, 2, 1}

	noHeader := *script
	noHeader.Header = nil

	badIDs := *script
	badIDs.Lines = []DialogueLine{{ID: 0, Text: "a"}, {ID: 5, Text: "b"}}

	for name, s := range map[string]*DialogueScript{
		"width":  &badWidth,
		"header": &noHeader,
		"ids":    &badIDs,
	} {
		_, err := DialogueCodec{}.Encode(sceneEntry, s)
		var ee *EncodeError
		assert.ErrorAs(t, err, &ee, name)
	}
}
