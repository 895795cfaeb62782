package ffmpeg

import (
	"regexp"
	"strings"

	"quaver/internal/format"
)

var vbrGrade = regexp.MustCompile(`^V\d$`)

// CodecArgs maps a format/quality pair to the encoder's codec arguments.
// VBR grades take the constant-quality flag, bitrate tokens the explicit
// bitrate flag, lossless formats no quality flag at all.
func CodecArgs(def format.Definition, quality string) []string {
	quality = strings.TrimSpace(quality)
	switch def.Key {
	case "mp3":
		if vbrGrade.MatchString(quality) {
			return []string{"-codec:a", "libmp3lame", "-q:a", quality[1:]}
		}
		return []string{"-codec:a", "libmp3lame", "-b:a", quality}
	case "ogg":
		grade := "6"
		if strings.HasPrefix(quality, "Q") {
			grade = quality[1:]
		}
		return []string{"-codec:a", "libvorbis", "-q:a", grade}
	case "m4a":
		return []string{"-codec:a", "aac", "-b:a", quality}
	case "opus":
		return []string{"-codec:a", "libopus", "-b:a", quality}
	case "flac":
		return []string{"-codec:a", "flac", "-compression_level", "8"}
	case "wav":
		return []string{"-codec:a", "pcm_s16le"}
	case "alac":
		return []string{"-codec:a", "alac"}
	}
	return nil
}
