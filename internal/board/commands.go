// Package board exposes the operations of a connected board through a per
// generation command set, and picks the command set matching the board's model
// and firmware.
//
// Operations return an error matching protocol.ErrBadResponse (see
// protocol.IsSoft) when the board's answer was unusable; the link stays in sync
// and the operation may be retried.
package board

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/bigbag/dupico/internal/link"
	"github.com/bigbag/dupico/internal/pinmap"
	"github.com/bigbag/dupico/internal/protocol"
	"github.com/bigbag/dupico/internal/xfer"
)

// Commands is the operation set of one hardware generation.
type Commands interface {
	// GetModel returns the board model number.
	GetModel() (int, error)
	// GetVersion returns the raw firmware version string.
	GetVersion() (string, error)
	// TestBoard runs the board self-test and reports whether it passed.
	TestBoard() (bool, error)
	// SetPower switches socket VCC and reports whether power is applied.
	SetPower(on bool) (bool, error)
	// WritePins drives the pins addressed by value and returns the value read back.
	WritePins(value uint64) (uint64, error)
	// ReadPins returns the current pin register value.
	ReadPins() (uint64, error)
	// DetectOscPins samples the pins reads times and returns a mask of the
	// pins that changed state.
	DetectOscPins(reads int) (uint64, error)
	// XferRead configures and runs a block transfer, returning the captured buffer.
	XferRead(ctx context.Context, pins xfer.Pins, progress xfer.ProgressCallback) ([]byte, error)

	// MapValueToPins converts a logical value over pins into a register value.
	MapValueToPins(pins []int, value uint64) (uint64, error)
	// MapPinsToValue converts a register value into the logical value over pins.
	MapPinsToValue(pins []int, value uint64) (uint64, error)
}

// QueryModel asks the board for its model number. The command is the same on
// every generation, so it is usable before a command set is chosen.
func QueryModel(l *link.Link) (int, error) {
	resp, err := l.Transceive(protocol.CmdModel, nil, protocol.ModelResponseSize)
	if err != nil {
		return 0, errors.Wrap(err, "query model")
	}
	return int(resp[0]), nil
}

// QueryVersion asks the board for its firmware version string.
func QueryVersion(l *link.Link) (string, error) {
	resp, err := l.Transceive(protocol.CmdVersion, nil, protocol.VersionResponseSize)
	if err != nil {
		return "", errors.Wrap(err, "query version")
	}
	return protocol.DecodeVersion(resp), nil
}

// hardware holds what every generation shares: the link, guarded so that one
// operation is in flight at a time, and the generation's pin map.
type hardware struct {
	mu   sync.Mutex
	link *link.Link
	pins *pinmap.Map
}

func (h *hardware) GetModel() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return QueryModel(h.link)
}

func (h *hardware) GetVersion() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return QueryVersion(h.link)
}

func (h *hardware) MapValueToPins(pins []int, value uint64) (uint64, error) {
	return h.pins.ValueToPins(pins, value)
}

func (h *hardware) MapPinsToValue(pins []int, value uint64) (uint64, error) {
	return h.pins.PinsToValue(pins, value)
}

// status sends cmd and decodes a one byte pass/fail answer.
func (h *hardware) status(cmd byte, data []byte) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	resp, err := h.link.Transceive(cmd, data, protocol.StatusResponseSize)
	if err != nil {
		return false, err
	}
	return resp[0] == 1, nil
}

// pinValue sends cmd and decodes a register value answer.
func (h *hardware) pinValue(cmd byte, data []byte) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	resp, err := h.link.Transceive(cmd, data, protocol.PinValueSize)
	if err != nil {
		return 0, err
	}
	return protocol.DecodePinValue(resp)
}

// transfer runs a block transfer under the command opcode, holding the link
// for the whole session.
func (h *hardware) transfer(ctx context.Context, opcode byte, pins xfer.Pins, progress xfer.ProgressCallback) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := xfer.New(h.link, h.pins, opcode)
	s.SetProgressCallback(progress)
	return s.Read(ctx, pins)
}
