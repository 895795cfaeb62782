package classify

import (
	"context"
	"strings"

	"quaver/internal/format"
	"quaver/internal/media/ffprobe"
)

// Classification labels a source codec's fidelity category.
type Classification int

const (
	Unknown Classification = iota
	Lossy
	Lossless
)

func (c Classification) String() string {
	switch c {
	case Lossy:
		return "lossy"
	case Lossless:
		return "lossless"
	default:
		return "unknown"
	}
}

// losslessCodecs lists the ffprobe codec identifiers that preserve the
// original signal. Anything else present in a stream is treated as lossy.
var losslessCodecs = map[string]struct{}{
	"flac":      {},
	"alac":      {},
	"wavpack":   {},
	"ape":       {},
	"tta":       {},
	"truehd":    {},
	"mlp":       {},
	"pcm_s16le": {},
	"pcm_s24le": {},
	"pcm_s32le": {},
	"pcm_f32le": {},
	"pcm_f64le": {},
	"pcm_s16be": {},
	"pcm_s24be": {},
	"pcm_s32be": {},
}

// FromCodec classifies a codec identifier as reported by ffprobe. An empty
// identifier (no audio stream found) classifies as Unknown.
func FromCodec(codec string) Classification {
	codec = strings.ToLower(strings.TrimSpace(codec))
	if codec == "" {
		return Unknown
	}
	if _, ok := losslessCodecs[codec]; ok {
		return Lossless
	}
	return Lossy
}

// Probe inspects the file's primary audio stream and classifies its codec.
// Inspector failures degrade to Unknown rather than an error: classification
// only drives an advisory warning.
func Probe(ctx context.Context, binary, path string) Classification {
	result, err := ffprobe.Inspect(ctx, binary, path)
	if err != nil {
		return Unknown
	}
	return FromCodec(result.PrimaryAudioCodec())
}

// ShouldWarn reports whether converting a source with the given
// classification deserves an explicit confirmation. Every re-encode of a
// lossy source warrants one, whether the destination is lossy (quality
// degrades further) or lossless (quality cannot be recovered); a lossless or
// unknown source never does.
func ShouldWarn(source Classification, targetFormat string) bool {
	if _, ok := format.Lookup(targetFormat); !ok {
		return false
	}
	return source == Lossy
}
