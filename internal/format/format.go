package format

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// LosslessToken marks formats that carry no quality selection.
const LosslessToken = "lossless"

// QualityOption is a selectable encoder setting for a format.
type QualityOption struct {
	Token       string
	Description string
}

// Definition describes one supported output format.
type Definition struct {
	Key       string
	Label     string
	Extension string
	Options   []QualityOption
}

// Lossless reports whether the format has no quality selection at all.
func (d Definition) Lossless() bool {
	return len(d.Options) == 1 && d.Options[0].Token == LosslessToken
}

// DefaultQuality returns the format's documented default token, the first
// quality option.
func (d Definition) DefaultQuality() string {
	if len(d.Options) == 0 {
		return LosslessToken
	}
	return d.Options[0].Token
}

// ValidQuality reports whether token is one of the format's options.
func (d Definition) ValidQuality(token string) bool {
	for _, opt := range d.Options {
		if opt.Token == token {
			return true
		}
	}
	return false
}

var catalog = map[string]Definition{
	"mp3": {
		Key:       "mp3",
		Label:     "MP3",
		Extension: ".mp3",
		Options: []QualityOption{
			{Token: "V0", Description: "VBR ~245 kbps (best)"},
			{Token: "V2", Description: "VBR ~190 kbps"},
			{Token: "V4", Description: "VBR ~165 kbps"},
			{Token: "128k", Description: "CBR 128 kbps"},
			{Token: "192k", Description: "CBR 192 kbps"},
			{Token: "256k", Description: "CBR 256 kbps"},
			{Token: "320k", Description: "CBR 320 kbps (max)"},
		},
	},
	"ogg": {
		Key:       "ogg",
		Label:     "OGG (Vorbis)",
		Extension: ".ogg",
		Options: []QualityOption{
			{Token: "Q6", Description: "~192 kbps (default)"},
			{Token: "Q3", Description: "~112 kbps"},
			{Token: "Q5", Description: "~160 kbps"},
			{Token: "Q8", Description: "~256 kbps"},
			{Token: "Q10", Description: "~500 kbps (best)"},
		},
	},
	"flac": {
		Key:       "flac",
		Label:     "FLAC",
		Extension: ".flac",
		Options:   []QualityOption{{Token: LosslessToken, Description: "Lossless"}},
	},
	"wav": {
		Key:       "wav",
		Label:     "WAV",
		Extension: ".wav",
		Options:   []QualityOption{{Token: LosslessToken, Description: "Lossless (PCM 16-bit)"}},
	},
	"m4a": {
		Key:       "m4a",
		Label:     "M4A (AAC)",
		Extension: ".m4a",
		Options: []QualityOption{
			{Token: "192k", Description: "192 kbps (default)"},
			{Token: "128k", Description: "128 kbps"},
			{Token: "256k", Description: "256 kbps"},
			{Token: "320k", Description: "320 kbps"},
		},
	},
	"opus": {
		Key:       "opus",
		Label:     "Opus",
		Extension: ".opus",
		Options: []QualityOption{
			{Token: "128k", Description: "128 kbps (default)"},
			{Token: "64k", Description: "64 kbps (voice)"},
			{Token: "96k", Description: "96 kbps"},
			{Token: "192k", Description: "192 kbps"},
			{Token: "256k", Description: "256 kbps (transparent)"},
		},
	},
	"alac": {
		Key:       "alac",
		Label:     "ALAC (M4A)",
		Extension: ".m4a",
		Options:   []QualityOption{{Token: LosslessToken, Description: "Lossless"}},
	},
}

// Lookup resolves a format key. Keys are matched case-insensitively.
func Lookup(key string) (Definition, bool) {
	def, ok := catalog[strings.ToLower(strings.TrimSpace(key))]
	return def, ok
}

// Keys returns all supported format keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// All returns the full catalog in key order.
func All() []Definition {
	defs := make([]Definition, 0, len(catalog))
	for _, key := range Keys() {
		defs = append(defs, catalog[key])
	}
	return defs
}

// Configurable returns the formats that expose more than a single lossless
// option, i.e. the ones the configure flow offers.
func Configurable() []Definition {
	defs := make([]Definition, 0, len(catalog))
	for _, def := range All() {
		if !def.Lossless() {
			defs = append(defs, def)
		}
	}
	return defs
}

// OutputPath derives the destination for source converted to def. When the
// derived path is lexically identical to the source (same-format round-trip),
// the stem gets the format key appended so the source is never overwritten.
func (d Definition) OutputPath(source string) string {
	dir := filepath.Dir(source)
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	out := filepath.Join(dir, stem+d.Extension)
	if out == source {
		out = filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, d.Key, d.Extension))
	}
	return out
}

// QualitySuffix renders the parenthetical used in labels and dialog titles,
// empty for lossless selections.
func QualitySuffix(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || token == LosslessToken {
		return ""
	}
	return fmt.Sprintf(" (%s)", token)
}
