package link

import (
	"fmt"
	"time"
)

const (
	// MinLogPeriod is the resolution of log block periods
	MinLogPeriod = 10 * time.Millisecond

	// MaxLogPeriod is the longest period a log block can be configured with
	MaxLogPeriod = 255 * MinLogPeriod

	// MaxLogPayload is the number of value bytes that fit in one log packet
	MaxLogPayload = 26
)

var logTypeSizes = map[string]int{
	"uint8_t":  1,
	"uint16_t": 2,
	"uint32_t": 4,
	"int8_t":   1,
	"int16_t":  2,
	"int32_t":  4,
	"float":    4,
	"FP16":     2,
}

// LogVariable is a single named variable of a log configuration
type LogVariable struct {
	Name string `yaml:"name" json:"name"` // Full TOC name, "group.name"
	Type string `yaml:"type" json:"type"` // Storage type, e.g. "float"
}

// LogConfig describes a named set of variables sampled at a fixed period
type LogConfig struct {
	Name      string        `yaml:"name" json:"name"`
	Period    time.Duration `yaml:"-" json:"period"`
	Variables []LogVariable `yaml:"variables" json:"variables"`
}

// Validate checks that the configuration can be serviced by a single log block
func (c *LogConfig) Validate() error {
	if c.Period <= 0 || c.Period%MinLogPeriod != 0 {
		return fmt.Errorf("%w: period %s must be a positive multiple of %s", ErrInvalidLogConfig, c.Period, MinLogPeriod)
	}
	if c.Period > MaxLogPeriod {
		return fmt.Errorf("%w: period %s exceeds %s", ErrInvalidLogConfig, c.Period, MaxLogPeriod)
	}
	if len(c.Variables) == 0 {
		return fmt.Errorf("%w: no variables", ErrInvalidLogConfig)
	}

	var payload int
	for _, v := range c.Variables {
		size, ok := logTypeSizes[v.Type]
		if !ok {
			return fmt.Errorf("%w: variable %s has unknown type '%s'", ErrInvalidLogConfig, v.Name, v.Type)
		}
		payload += size
	}
	if payload > MaxLogPayload {
		return fmt.Errorf("%w: %d bytes of variables, at most %d fit in a packet", ErrInvalidLogConfig, payload, MaxLogPayload)
	}

	return nil
}
