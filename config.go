package lightio

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options tunes a Scheduler's internal buffers and timing. The zero value
// is not valid; use DefaultOptions.
type Options struct {
	// SelectorBatchSize bounds how many ready Monitors the Selector
	// returns per call, mirroring epoll_wait's maxevents.
	SelectorBatchSize int `yaml:"selector_batch_size"`

	// MaxSelectTimeout caps how long the tick loop blocks in the
	// Selector even when no timer is armed, so a scheduler with no
	// pending work still wakes occasionally to notice Stop(). In YAML
	// this is a duration string such as "5s", which yaml.v3 parses with
	// time.ParseDuration; a bare integer is rejected.
	MaxSelectTimeout time.Duration `yaml:"max_select_timeout"`

	// LogLevel is advisory metadata for the configured Logger. Nothing in
	// lightio reads it, neither the scheduler nor the default Logger; it
	// is only carried through YAML config for the caller to apply.
	LogLevel string `yaml:"log_level"`
}

// DefaultOptions mirrors the defaults used throughout the scheduler tests
// and the demo CLI.
func DefaultOptions() Options {
	return Options{
		SelectorBatchSize: 128,
		MaxSelectTimeout:  5 * time.Second,
		LogLevel:          "info",
	}
}

// LoadOptionsYAML reads scheduler tuning from a YAML file, starting from
// DefaultOptions so a partial file only overrides what it names.
func LoadOptionsYAML(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}
