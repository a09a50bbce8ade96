package app

import (
	"encoding/json"
	"fmt"
	"os"

	"pulsar/kernel"
	"pulsar/memory"
)

// Config is the system configuration. It can be read from a JSON file.
type Config struct {
	Quantum    uint32 `json:"quantum"`
	Stacks     int    `json:"stacks"`
	StackSize  int    `json:"stack_size"`
	Workers    int    `json:"workers"`
	Iterations int    `json:"iterations"`
	Shell      bool   `json:"shell"`
	Echo       bool   `json:"echo"`
	Debug      bool   `json:"debug"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Quantum:    kernel.DefaultQuantum,
		Stacks:     memory.DefaultStacks,
		StackSize:  memory.DefaultStackSize,
		Workers:    3,
		Iterations: 5,
		Shell:      true,
		Echo:       true,
	}
}

// LoadConfig decodes the JSON file at path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the kernel cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Workers < 0:
		return fmt.Errorf("config: negative workers %d", c.Workers)
	case c.Stacks < 0 || c.StackSize < 0:
		return fmt.Errorf("config: negative stack pool %dx%d", c.Stacks, c.StackSize)
	case c.Stacks > 0 && c.Workers+reservedProcs > c.Stacks:
		return fmt.Errorf("config: %d workers need at least %d stacks, have %d", c.Workers, c.Workers+reservedProcs, c.Stacks)
	}
	return nil
}
