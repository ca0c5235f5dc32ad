// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package codec

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/woozymasta/pathrules"
)

// Binding maps entries matching Pattern (gitignore-style path rule) to Codec.
type Binding struct {
	Codec   Codec
	Pattern string
}

// compiledBinding is a Binding with its compiled matcher.
type compiledBinding struct {
	codec   Codec
	matcher *pathrules.Matcher
	pattern string
}

// Registry resolves entry paths to codecs. The first matching binding wins;
// unmatched entries resolve to RawCodec. Registry is immutable and safe for
// concurrent use.
type Registry struct {
	bindings []compiledBinding
}

// NewRegistry compiles bindings in declaration order.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	reg := &Registry{bindings: make([]compiledBinding, 0, len(bindings))}
	for _, b := range bindings {
		if b.Codec == nil {
			return nil, fmt.Errorf("binding %q: nil codec", b.Pattern)
		}

		pattern := strings.TrimSpace(b.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("binding for %s codec: empty pattern", b.Codec.Kind())
		}

		matcher, err := pathrules.NewMatcher(
			[]pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: pattern}},
			pathrules.MatcherOptions{
				CaseInsensitive: true,
				DefaultAction:   pathrules.ActionExclude,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", pattern, err)
		}

		reg.bindings = append(reg.bindings, compiledBinding{codec: b.Codec, matcher: matcher, pattern: pattern})
	}

	return reg, nil
}

// DefaultBindings returns bindings for every known resource layout.
func DefaultBindings() []Binding {
	return []Binding{
		{Pattern: "/c/csv/common_text.dat", Codec: TextCodec{}},
		{Pattern: "/c/csv/name.dat", Codec: TextCodec{}},
		{Pattern: "/c/csv/mission_text.dat", Codec: TextCodec{}},
		{Pattern: "/c/csv/menu_text.dat", Codec: TextCodec{}},
		{Pattern: "/c/csv/ingame_text.dat", Codec: TextCodec{}},
		{Pattern: "/c/csv/tips.dat", Codec: TextCodec{}},
		{Pattern: "/c/csv/item_*.dat", Codec: ItemCodec{}},
		{Pattern: "/c/csv/quest_*.dat", Codec: RecordCodec{Schema: QuestSchema}},
		{Pattern: "/c/csv/enemy_*.dat", Codec: RecordCodec{Schema: EnemySchema}},
		{Pattern: "/c/csv/class.dat", Codec: RecordCodec{Schema: ClassSchema}},
		{Pattern: "/c/csv/skill_*.dat", Codec: RecordCodec{Schema: SkillSchema}},
		{Pattern: "/c/map/*.scn", Codec: DialogueCodec{}},
		{Pattern: "/c/img/*.mgr", Codec: SpriteCodec{}},
	}
}

// defaultRegistry compiles DefaultBindings once.
var defaultRegistry = sync.OnceValue(func() *Registry {
	reg, err := NewRegistry(DefaultBindings()...)
	if err != nil {
		panic(fmt.Sprintf("codec: default bindings: %v", err))
	}

	return reg
})

// DefaultRegistry returns the shared registry of DefaultBindings.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Lookup returns the codec bound to entry, RawCodec when none matches.
func (r *Registry) Lookup(entry string) Codec {
	if r != nil {
		for _, b := range r.bindings {
			if b.matcher.Included(entry, false) {
				return b.codec
			}
		}
	}

	return RawCodec{}
}

// Decode decodes raw with the codec bound to entry and verifies that the
// result re-encodes to identical bytes. A resource that would not survive a
// round trip is reported as DecodeError.
func (r *Registry) Decode(entry string, raw []byte) (Resource, error) {
	c := r.Lookup(entry)
	res, err := c.Decode(entry, raw)
	if err != nil {
		return nil, decodeErr(entry, err, "%s codec", c.Kind())
	}

	back, err := c.Encode(entry, res)
	if err != nil {
		return nil, &DecodeError{Entry: entry, Reason: "decoded resource does not re-encode", Err: err}
	}
	if !bytes.Equal(back, raw) {
		return nil, &DecodeError{
			Entry:  entry,
			Reason: fmt.Sprintf("re-encoded payload differs from original (%d vs %d bytes)", len(back), len(raw)),
		}
	}

	return res, nil
}

// Encode serializes res with the codec bound to entry.
func (r *Registry) Encode(entry string, res Resource) ([]byte, error) {
	c := r.Lookup(entry)
	if res == nil || res.Kind() != c.Kind() {
		return nil, wrongResource(entry, c.Kind(), res)
	}

	return c.Encode(entry, res)
}
