package board

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bigbag/dupico/internal/link"
	"github.com/bigbag/dupico/internal/pinmap"
	"github.com/bigbag/dupico/internal/protocol"
	"github.com/bigbag/dupico/internal/xfer"
)

// ModelM3 is the model number reported by M3 boards.
const ModelM3 = 3

// m3Pins maps the 42 pin ZIF socket of the M3: pins 1..20 on bits 0..19 and
// pins 22..41 on bits 20..39. Pins 21 and 42 are power, from pinmap.Base.
var m3Pins = pinmap.New(pinmap.Base, func() map[int]int {
	pins := make(map[int]int, 40)
	for p := 1; p <= 20; p++ {
		pins[p] = p - 1
	}
	for p := 22; p <= 41; p++ {
		pins[p] = p - 2
	}
	return pins
}())

type m3 struct {
	hardware
}

// NewM3 returns the command set of M3 boards.
func NewM3(l *link.Link) Commands {
	return &m3{hardware{link: l, pins: m3Pins}}
}

func (b *m3) TestBoard() (bool, error) {
	ok, err := b.status(protocol.CmdTest, nil)
	return ok, errors.Wrap(err, "self-test")
}

func (b *m3) SetPower(on bool) (bool, error) {
	ok, err := b.status(protocol.CmdPower, protocol.PowerData(on))
	return ok, errors.Wrap(err, "set power")
}

func (b *m3) WritePins(value uint64) (uint64, error) {
	v, err := b.pinValue(protocol.CmdWrite, protocol.PinValueData(value))
	return v, errors.Wrap(err, "write pins")
}

func (b *m3) ReadPins() (uint64, error) {
	v, err := b.pinValue(protocol.CmdRead, nil)
	return v, errors.Wrap(err, "read pins")
}

func (b *m3) DetectOscPins(reads int) (uint64, error) {
	v, err := b.pinValue(protocol.CmdOscDet, protocol.OscDetectData(reads))
	return v, errors.Wrap(err, "detect oscillating pins")
}

func (b *m3) XferRead(ctx context.Context, pins xfer.Pins, progress xfer.ProgressCallback) ([]byte, error) {
	return b.transfer(ctx, protocol.CmdXfer, pins, progress)
}
