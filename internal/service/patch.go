package service

import (
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Patch partial update keyed by JSON field names
type Patch map[string]any

// without returns a copy of p minus keys.
func (p Patch) without(keys ...string) Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// applyPatch decodes p onto dst (a struct pointer) using json tag names. Strings
// holding numbers are accepted for numeric fields; absent keys keep their value.
func applyPatch(dst any, p Patch) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(p)); err != nil {
		return invalidf("invalid update: %v", err)
	}
	return nil
}

// Decode fills dst from a loosely typed JSON body, the way browser forms send
// it: numbers may arrive as strings and empty strings read as zero. Keys listed
// in whole must hold integral values.
func (p Patch) Decode(dst any, whole ...string) error {
	for _, k := range whole {
		if err := p.wholeNumber(k); err != nil {
			return err
		}
	}
	return applyPatch(dst, p)
}

// wholeNumber checks that key, when present, holds an integral value.
func (p Patch) wholeNumber(key string) error {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return invalidf("%s must be a number", key)
	}
	if f != math.Trunc(f) {
		return invalidf("%s must be a whole number", key)
	}
	return nil
}

// echo response body for partial updates: the applied fields plus the id. The
// map is freshly allocated so callers may keep it.
func (p Patch) echo(id string) map[string]any {
	out := make(map[string]any, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out["id"] = id
	return out
}
