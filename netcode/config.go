package netcode

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config describes one endpoint's codec parameters as a JSON document,
// grounded on the teacher's server/config.go Config struct and its
// parseJSONConfig loader.
type Config struct {
	FieldWidth  uint   `json:"field_width"`
	Rate        uint32 `json:"rate"`
	MaxRate     uint32 `json:"max_rate"`
	WindowSize  uint32 `json:"window_size"`
	CodeType    string `json:"code_type"`     // "systematic" or "non_systematic"
	Adaptive    bool   `json:"adaptive"`
	InOrder     bool   `json:"in_order"`
	AckFreqMs   int    `json:"ack_frequency_ms"`
	AckNbPkts   uint16 `json:"ack_nb_packets"`
	StatsLog    string `json:"stats_log"`
	StatsPeriod int    `json:"stats_period_seconds"`
}

// LoadConfig reads and validates a JSON config file at path.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "netcode: open config %q", path)
	}
	defer file.Close()

	cfg := &Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "netcode: parse config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a Config whose values could not produce a working
// encoder/decoder pair.
func (c *Config) Validate() error {
	switch c.FieldWidth {
	case 4, 8, 16, 32:
	default:
		return errors.Errorf("netcode: field_width must be one of 4, 8, 16, 32, got %d", c.FieldWidth)
	}
	if c.Rate < 1 {
		return errors.Errorf("netcode: rate must be >= 1, got %d", c.Rate)
	}
	if c.MaxRate < 1 {
		return errors.Errorf("netcode: max_rate must be >= 1, got %d", c.MaxRate)
	}
	if c.Rate > c.MaxRate {
		return errors.Errorf("netcode: rate (%d) must not exceed max_rate (%d)", c.Rate, c.MaxRate)
	}
	switch c.CodeType {
	case "systematic", "non_systematic":
	default:
		return errors.Errorf("netcode: code_type must be \"systematic\" or \"non_systematic\", got %q", c.CodeType)
	}
	if c.AckFreqMs < 0 {
		return errors.Errorf("netcode: ack_frequency_ms must be >= 0, got %d", c.AckFreqMs)
	}
	return nil
}

// ParseCodeType maps the config's string field to the CodeType enum.
func (c *Config) ParseCodeType() CodeType {
	if c.CodeType == "non_systematic" {
		return NonSystematic
	}
	return Systematic
}
