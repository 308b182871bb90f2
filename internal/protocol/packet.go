package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Request represents a board command frame.
type Request struct {
	Command  byte
	Data     []byte
	Checksum byte
}

// NewRequest creates a new request with calculated checksum.
func NewRequest(cmd byte, data []byte) *Request {
	r := &Request{
		Command: cmd,
		Data:    data,
	}
	r.Checksum = CommandChecksum(r.body())
	return r
}

func (r *Request) body() []byte {
	b := make([]byte, 0, 1+len(r.Data))
	b = append(b, r.Command)
	return append(b, r.Data...)
}

// Encode serializes the request to bytes.
func (r *Request) Encode() []byte {
	// Frame format:
	// 0: opcode
	// 1..n: payload (command specific, fixed length)
	// n+1: checksum
	return append(r.body(), r.Checksum)
}

// PowerData creates the payload for the POWER command.
func PowerData(on bool) []byte {
	if on {
		return []byte{1}
	}
	return []byte{0}
}

// PinValueData encodes a 64-bit pin value (little-endian).
func PinValueData(value uint64) []byte {
	data := make([]byte, PinValueSize)
	binary.LittleEndian.PutUint64(data, value)
	return data
}

// OscDetectData creates the payload for the OSC_DET command.
func OscDetectData(reads int) []byte {
	return []byte{byte(reads & 0xFF)}
}

// DecodePinValue decodes a 64-bit pin value response.
func DecodePinValue(data []byte) (uint64, error) {
	if len(data) != PinValueSize {
		return 0, fmt.Errorf("pin value: got %d bytes, want %d", len(data), PinValueSize)
	}
	return binary.LittleEndian.Uint64(data), nil
}

// DecodeVersion decodes the NUL padded ASCII firmware version response.
func DecodeVersion(data []byte) string {
	return string(bytes.TrimSpace(bytes.TrimRight(data, "\x00")))
}

// XferData creates a block transfer payload: sub-command followed by the
// parameter area, zero padded to XferParamSize.
func XferData(sub byte, params []byte) []byte {
	data := make([]byte, 1+XferParamSize)
	data[0] = sub
	copy(data[1:], params)
	return data
}

// XferMaskData creates the payload for the HI_OUT_MASK and DATA_MASK sub-commands.
func XferMaskData(sub byte, mask uint64) []byte {
	return XferData(sub, PinValueData(mask))
}

// XferWidthData creates the payload for the ADDR_WIDTH and DATA_WIDTH sub-commands.
func XferWidthData(sub byte, width int) []byte {
	return XferData(sub, []byte{byte(width)})
}

// XferMapData creates the payloads uploading a shift map, one per chunk of
// ShiftChunkSize bit indices. Chunk n goes to sub-command base+n.
func XferMapData(base byte, shiftMap []byte) ([][]byte, error) {
	chunks := (len(shiftMap) + ShiftChunkSize - 1) / ShiftChunkSize
	if chunks > MaxShiftChunks {
		return nil, fmt.Errorf("shift map of %d entries exceeds %d chunks", len(shiftMap), MaxShiftChunks)
	}

	payloads := make([][]byte, 0, chunks)
	for i := 0; i < chunks; i++ {
		end := min((i+1)*ShiftChunkSize, len(shiftMap))
		payloads = append(payloads, XferData(base+byte(i), shiftMap[i*ShiftChunkSize:end]))
	}
	return payloads, nil
}
