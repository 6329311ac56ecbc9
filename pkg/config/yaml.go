package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlOptions is the on-disk form. Durations are integer milliseconds
// to match the option names the widget side exposes. Pointer fields
// distinguish "absent" from an explicit zero, so every option can be
// overridden independently.
type yamlOptions struct {
	HeartbeatIntervalMs *int     `yaml:"heartbeatIntervalMs"`
	HeartbeatTimeoutMs  *int     `yaml:"heartbeatTimeoutMs"`
	MaxFailedPings      *int     `yaml:"maxFailedPings"`
	AutoRecover         *bool    `yaml:"autoRecover"`
	MaxAttempts         *int     `yaml:"maxAttempts"`
	AttemptTimeoutMs    *int     `yaml:"attemptTimeoutMs"`
	InitialDelayMs      *int     `yaml:"initialDelayMs"`
	MaxDelayMs          *int     `yaml:"maxDelayMs"`
	BackoffMultiplier   *float64 `yaml:"backoffMultiplier"`
	DebounceMs          *int     `yaml:"debounceMs"`
	CacheTtlMs          *int     `yaml:"cacheTtlMs"`
	QueueMaxAgeMs       *int     `yaml:"queueMaxAgeMs"`
}

// Parse decodes YAML option data on top of the defaults. Options not
// present in the data keep their default values.
func Parse(data []byte) (Options, error) {
	opts := DefaultOptions()

	var y yamlOptions
	if err := yaml.Unmarshal(data, &y); err != nil {
		return Options{}, fmt.Errorf("parsing options: %w", err)
	}

	ms := func(v *int, dst *time.Duration) {
		if v != nil {
			*dst = time.Duration(*v) * time.Millisecond
		}
	}
	ms(y.HeartbeatIntervalMs, &opts.HeartbeatInterval)
	ms(y.HeartbeatTimeoutMs, &opts.HeartbeatTimeout)
	ms(y.AttemptTimeoutMs, &opts.AttemptTimeout)
	ms(y.InitialDelayMs, &opts.InitialDelay)
	ms(y.MaxDelayMs, &opts.MaxDelay)
	ms(y.DebounceMs, &opts.Debounce)
	ms(y.CacheTtlMs, &opts.CacheTTL)
	ms(y.QueueMaxAgeMs, &opts.QueueMaxAge)

	if y.MaxFailedPings != nil {
		opts.MaxFailedPings = *y.MaxFailedPings
	}
	if y.AutoRecover != nil {
		opts.AutoRecover = *y.AutoRecover
	}
	if y.MaxAttempts != nil {
		opts.MaxAttempts = *y.MaxAttempts
	}
	if y.BackoffMultiplier != nil {
		opts.BackoffMultiplier = *y.BackoffMultiplier
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadFile reads and parses an options file.
func LoadFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading options file: %w", err)
	}
	return Parse(data)
}
