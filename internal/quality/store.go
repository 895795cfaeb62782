package quality

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"quaver/internal/fileutil"
	"quaver/internal/format"
)

// Config maps format keys to quality tokens. Lossless formats never carry a
// stored token; Resolve falls back to the catalog default for absent keys.
type Config map[string]string

// Defaults returns the documented default selection for every lossy format.
func Defaults() Config {
	cfg := Config{}
	for _, def := range format.Configurable() {
		cfg[def.Key] = def.DefaultQuality()
	}
	return cfg
}

// Resolve returns the stored token for key, or the format's default when the
// key is absent or holds a token the format no longer offers.
func (c Config) Resolve(key string) string {
	def, ok := format.Lookup(key)
	if !ok {
		return ""
	}
	if def.Lossless() {
		return format.LosslessToken
	}
	if token, ok := c[def.Key]; ok && def.ValidQuality(token) {
		return token
	}
	return def.DefaultQuality()
}

// Set records a quality token after validating it against the catalog.
func (c Config) Set(key, token string) error {
	def, ok := format.Lookup(key)
	if !ok {
		return fmt.Errorf("unknown format %q", key)
	}
	if def.Lossless() {
		return fmt.Errorf("format %q has no quality selection", def.Key)
	}
	if !def.ValidQuality(token) {
		return fmt.Errorf("format %q does not offer quality %q", def.Key, token)
	}
	c[def.Key] = token
	return nil
}

// Store reads and writes the quality document at a fixed path.
type Store struct {
	path string
}

// NewStore builds a store for the given document path.
func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path)}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted selection. A missing or malformed document yields
// the defaults rather than an error; stored keys overlay them.
func (s *Store) Load() Config {
	cfg := Defaults()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return cfg
	}
	stored := map[string]string{}
	if err := toml.Unmarshal(data, &stored); err != nil {
		return cfg
	}
	for key, token := range stored {
		def, ok := format.Lookup(key)
		if !ok || def.Lossless() || !def.ValidQuality(token) {
			continue
		}
		cfg[def.Key] = token
	}
	return cfg
}

// Save writes the full selection atomically so a crash mid-write never leaves
// a document Load cannot parse.
func (s *Store) Save(cfg Config) error {
	data, err := toml.Marshal(map[string]string(cfg))
	if err != nil {
		return fmt.Errorf("encode quality config: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write quality config: %w", err)
	}
	return nil
}
