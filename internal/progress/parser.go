package progress

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// Sample is one observation from the side-channel file: the elapsed source
// time the encoder has processed so far, in microseconds.
type Sample struct {
	ElapsedMicros int64
}

// Parse scans key=value progress records and returns the most recent
// elapsed-time sample. ffmpeg's out_time_ms key carries microseconds despite
// its name; out_time_us is accepted as an alias. A reader with no complete
// sample yields ok=false.
func Parse(r io.Reader) (Sample, bool) {
	scanner := bufio.NewScanner(r)
	var sample Sample
	found := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_ms", "out_time_us":
			micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || micros < 0 {
				// A torn write can truncate the value; keep the last good one.
				continue
			}
			sample = Sample{ElapsedMicros: micros}
			found = true
		}
	}
	if scanner.Err() != nil {
		return sample, found
	}
	return sample, found
}

// LastSample reads the side-channel file at path. A missing, empty, or
// partially-written file yields ok=false and no error: the next poll retries.
func LastSample(path string) (Sample, bool) {
	file, err := os.Open(path)
	if err != nil {
		return Sample{}, false
	}
	defer file.Close()
	return Parse(file)
}
