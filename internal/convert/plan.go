package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"quaver/internal/classify"
	"quaver/internal/fileutil"
	"quaver/internal/format"
)

// planEntry is one source file annotated with everything the encode loop
// needs up front.
type planEntry struct {
	Source   string
	Output   string
	Duration float64
	Codec    string
	Class    classify.Classification
	Missing  bool
}

// plan probes every source once and derives output paths. Missing files stay
// in the plan so they surface as failures in batch order.
func (o *Orchestrator) plan(ctx context.Context, def format.Definition, sources []string) []planEntry {
	entries := make([]planEntry, 0, len(sources))
	for _, source := range sources {
		entry := planEntry{Source: source, Output: def.OutputPath(source)}
		if !fileutil.Exists(source) {
			entry.Missing = true
			entries = append(entries, entry)
			continue
		}
		entry.Duration, entry.Codec = o.inspect(ctx, source)
		entry.Class = classify.FromCodec(entry.Codec)
		entries = append(entries, entry)
	}
	return entries
}

// weights assigns each entry its share of the 0-100 bar, proportional to
// duration so long files sweep slowly instead of each file taking an equal
// slice. When no durations are known the slices fall back to equal.
func weights(entries []planEntry) []float64 {
	total := 0.0
	for _, entry := range entries {
		total += entry.Duration
	}
	out := make([]float64, len(entries))
	if total <= 0 {
		if len(entries) == 0 {
			return out
		}
		equal := 1.0 / float64(len(entries))
		for i := range out {
			out[i] = equal
		}
		return out
	}
	for i, entry := range entries {
		out[i] = entry.Duration / total
	}
	return out
}

const maxLabelRunes = 50

// shortName trims long file names so the dialog label stays readable.
func shortName(path string) string {
	name := filepath.Base(path)
	runes := []rune(name)
	if len(runes) <= maxLabelRunes {
		return name
	}
	return string(runes[:maxLabelRunes]) + "…"
}

func lossyWarningText(codec string, def format.Definition) string {
	codec = strings.ToUpper(strings.TrimSpace(codec))
	if codec == "" {
		codec = "UNKNOWN"
	}
	target := strings.ToUpper(def.Key)
	if def.Lossless() {
		return fmt.Sprintf(
			"<b>Lossy → Lossless conversion</b><br><br>"+
				"Source codec: <i>%s</i><br>"+
				"Target format: <i>%s</i><br><br>"+
				"Wrapping lossy audio in a lossless container <b>will not recover quality</b> "+
				"- the output will simply be larger.<br><br>"+
				"<b>Convert anyway?</b>",
			codec, target)
	}
	return fmt.Sprintf(
		"<b>Lossy → Lossy conversion</b><br><br>"+
			"Source codec: <i>%s</i><br>"+
			"Target format: <i>%s</i><br><br>"+
			"Re-encoding between lossy formats permanently degrades quality. "+
			"A lossless source is strongly recommended.<br><br>"+
			"<b>Convert anyway?</b>",
		codec, target)
}
