// Package pinmap translates between logical IC socket pin numbers and the bit
// positions the board uses to address them.
//
// A Map is built once per hardware generation and never modified. Pins that
// cannot be addressed individually (ground, power, not connected) map to NoBit
// and are skipped by both translation directions.
package pinmap

import (
	"fmt"
)

// NoBit marks a pin that has no register bit.
const NoBit = -1

// MaxBits is the width of a board register value.
const MaxBits = 64

// UnknownPinError reports a pin number absent from the active map.
type UnknownPinError struct {
	Pin int
}

func (e *UnknownPinError) Error() string {
	return fmt.Sprintf("unknown pin %d", e.Pin)
}

// Map is an immutable pin number to bit index table.
type Map struct {
	bits map[int]int
}

// Base is the table shared by every generation: pin 0 (not connected) and the
// two power pins of the 42 pin socket.
var Base = map[int]int{
	0:  NoBit,
	21: NoBit,
	42: NoBit,
}

// New builds a Map from the union of tables. Later tables win on duplicate pins.
// It panics on a bit index outside the register width, since the tables are
// static data compiled into the program.
func New(tables ...map[int]int) *Map {
	bits := make(map[int]int)
	for _, t := range tables {
		for pin, bit := range t {
			if bit != NoBit && (bit < 0 || bit >= MaxBits) {
				panic(fmt.Sprintf("pinmap: pin %d maps to invalid bit %d", pin, bit))
			}
			bits[pin] = bit
		}
	}
	return &Map{bits: bits}
}

// Bit returns the bit index for pin, NoBit for sentinel pins.
func (m *Map) Bit(pin int) (int, error) {
	bit, ok := m.bits[pin]
	if !ok {
		return 0, &UnknownPinError{Pin: pin}
	}
	return bit, nil
}

// Len returns the number of pins in the map.
func (m *Map) Len() int {
	return len(m.bits)
}

// ValueToPins converts a logical value, bit i belonging to pins[i], into the
// board register value addressing those pins.
func (m *Map) ValueToPins(pins []int, value uint64) (uint64, error) {
	var result uint64

	for idx, pin := range pins {
		bit, err := m.Bit(pin)
		if err != nil {
			return 0, err
		}
		if bit == NoBit || idx >= MaxBits {
			continue
		}
		if value&(1<<idx) != 0 {
			result |= 1 << bit
		}
	}

	return result, nil
}

// PinsToValue is the inverse of ValueToPins: it converts a register value read
// from the board into the logical value the listed pins form.
func (m *Map) PinsToValue(pins []int, value uint64) (uint64, error) {
	var result uint64

	for idx, pin := range pins {
		bit, err := m.Bit(pin)
		if err != nil {
			return 0, err
		}
		if bit == NoBit || idx >= MaxBits {
			continue
		}
		if value&(1<<bit) != 0 {
			result |= 1 << idx
		}
	}

	return result, nil
}

// ShiftMap returns the bit index of every pin, in order, as the board expects
// for block transfer address/data maps. Sentinel pins are sent as 0xFF.
func (m *Map) ShiftMap(pins []int) ([]byte, error) {
	out := make([]byte, len(pins))
	for i, pin := range pins {
		bit, err := m.Bit(pin)
		if err != nil {
			return nil, err
		}
		out[i] = byte(bit)
	}
	return out, nil
}
