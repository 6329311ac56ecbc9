// Package config collects every tunable of the storage bridge into a
// single Options struct with documented defaults, validation, and a
// YAML file form whose fields override the defaults independently.
package config
