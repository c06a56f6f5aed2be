package sim

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roman-kulish/motor-ramp/internal/link"
)

// Scheme prefixes the URI of every simulated device
const Scheme = "sim://"

// Radio is a link.Radio over a fixed number of simulated devices
type Radio struct {
	devices int
	options []func(d *Driver)
}

// NewRadio creates a radio that discovers the given number of devices. The
// options are applied to every driver it opens.
func NewRadio(devices int, options ...func(d *Driver)) *Radio {
	return &Radio{devices: devices, options: options}
}

func (r *Radio) Scan(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uris := make([]string, 0, r.devices)
	for i := 0; i < r.devices; i++ {
		uris = append(uris, fmt.Sprintf("%s%d", Scheme, i))
	}
	return uris, nil
}

func (r *Radio) Open(uri string) (link.Client, error) {
	index, ok := strings.CutPrefix(uri, Scheme)
	if !ok {
		return nil, fmt.Errorf("unsupported link URI '%s'", uri)
	}

	n, err := strconv.Atoi(index)
	if err != nil {
		return nil, fmt.Errorf("invalid link URI '%s': %w", uri, err)
	}
	if n < 0 || n >= r.devices {
		return nil, fmt.Errorf("no device at '%s'", uri)
	}

	return NewDriver(uri, r.options...), nil
}
