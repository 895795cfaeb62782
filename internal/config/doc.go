// Package config loads and validates the TOML configuration document that
// controls tool binaries, storage paths, polling cadence, and logging.
// Defaults cover a stock KDE install so the converter runs without any
// configuration file at all.
package config
