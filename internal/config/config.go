// Package config loads the board profile used by the command line tool.
//
// Example profile:
//
//	port: /dev/ttyACM0
//	baud: 115200
//	read_timeout: 1s
//	handshake_retries: 2
//	settle_delay: 500ms
//	captures:
//	  27c512:
//	    address: [12, 11, 10, 9, 8, 7, 6, 5, 27, 26, 23, 25, 4, 28, 29, 3]
//	    data: [13, 14, 15, 17, 18, 19, 20, 22]
//	    hi: [1, 24, 31]
package config

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/bigbag/dupico/internal/link"
	"github.com/bigbag/dupico/internal/pinmap"
	"github.com/bigbag/dupico/internal/protocol"
	"github.com/bigbag/dupico/internal/serial"
	"github.com/bigbag/dupico/internal/xfer"
)

// Capture is a named pin selection for block transfers.
type Capture struct {
	Address []int `yaml:"address"`
	Data    []int `yaml:"data"`
	Hi      []int `yaml:"hi"`
}

// Pins converts the capture to a transfer pin selection.
func (c Capture) Pins() xfer.Pins {
	return xfer.Pins{Address: c.Address, Data: c.Data, Hi: c.Hi}
}

// Profile describes how to reach a board and what to capture from it.
type Profile struct {
	Port             string             `yaml:"port"`
	Baud             int                `yaml:"baud"`
	ReadTimeout      time.Duration      `yaml:"read_timeout"`
	HandshakeRetries int                `yaml:"handshake_retries"`
	SettleDelay      time.Duration      `yaml:"settle_delay"`
	Captures         map[string]Capture `yaml:"captures"`
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Baud:             protocol.DefaultBaudRate,
		ReadTimeout:      serial.DefaultReadTimeout,
		HandshakeRetries: link.DefaultRetries,
		SettleDelay:      link.DefaultSettleDelay,
	}
}

// Load reads a profile file. Keys missing from the file keep their defaults;
// unknown keys are an error.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile")
	}
	return Parse(data)
}

// Parse decodes a profile from YAML.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, errors.Wrap(err, "failed to parse profile")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the profile values.
func (p *Profile) Validate() error {
	if p.Baud <= 0 {
		return errors.Errorf("invalid baud rate %d", p.Baud)
	}
	if p.ReadTimeout <= 0 {
		return errors.Errorf("invalid read timeout %s", p.ReadTimeout)
	}
	if p.HandshakeRetries <= 0 {
		return errors.Errorf("invalid handshake retries %d", p.HandshakeRetries)
	}
	if p.SettleDelay < 0 {
		return errors.Errorf("invalid settle delay %s", p.SettleDelay)
	}
	for name, c := range p.Captures {
		if len(c.Address) == 0 && len(c.Data) == 0 {
			return errors.Errorf("capture %q selects no pins", name)
		}
		if len(c.Address) > pinmap.MaxBits || len(c.Data) > pinmap.MaxBits {
			return errors.Errorf("capture %q uses more than %d address or data pins", name, pinmap.MaxBits)
		}
	}
	return nil
}

// LinkOptions returns the link settings of the profile.
func (p *Profile) LinkOptions() []link.Option {
	return []link.Option{
		link.WithRetries(p.HandshakeRetries),
		link.WithSettleDelay(p.SettleDelay),
	}
}

// Capture returns the named pin selection.
func (p *Profile) Capture(name string) (Capture, error) {
	c, ok := p.Captures[name]
	if !ok {
		return Capture{}, errors.Errorf("no capture named %q in profile", name)
	}
	return c, nil
}

// CaptureNames returns the capture names in sorted order.
func (p *Profile) CaptureNames() []string {
	names := make([]string, 0, len(p.Captures))
	for name := range p.Captures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
