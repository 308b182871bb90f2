package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestNewRequest_Checksum_EmptyData(t *testing.T) {
	req := NewRequest(CmdModel, nil)
	if req.Checksum != 252 {
		t.Errorf("NewRequest checksum for MODEL = %d, want 252", req.Checksum)
	}
}

func TestNewRequest_Fields(t *testing.T) {
	data := []byte{0x01}
	req := NewRequest(CmdPower, data)

	if req.Command != CmdPower {
		t.Errorf("NewRequest Command = 0x%02X, want 0x%02X", req.Command, CmdPower)
	}
	if !bytes.Equal(req.Data, data) {
		t.Errorf("NewRequest Data = %v, want %v", req.Data, data)
	}
}

func TestRequest_Encode_Format(t *testing.T) {
	req := NewRequest(CmdPower, PowerData(true))
	encoded := req.Encode()

	expected := []byte{CmdPower, 0x01, 0xFC}
	if !bytes.Equal(encoded, expected) {
		t.Errorf("Encode() = %v, want %v", encoded, expected)
	}
	if !VerifyFrame(encoded) {
		t.Errorf("VerifyFrame(Encode()) = false, want true")
	}
}

func TestRequest_Encode_DoesNotAliasData(t *testing.T) {
	data := make([]byte, 8, 16)
	req := NewRequest(CmdWrite, data)
	encoded := req.Encode()
	encoded[1] = 0xAA

	if data[0] != 0 {
		t.Errorf("Encode() modified request data: %v", data)
	}
}

func TestPowerData(t *testing.T) {
	if d := PowerData(true); !bytes.Equal(d, []byte{1}) {
		t.Errorf("PowerData(true) = %v, want [1]", d)
	}
	if d := PowerData(false); !bytes.Equal(d, []byte{0}) {
		t.Errorf("PowerData(false) = %v, want [0]", d)
	}
}

func TestPinValueData_RoundTrip(t *testing.T) {
	value := uint64(0x800018020F)
	data := PinValueData(value)

	if len(data) != PinValueSize {
		t.Fatalf("PinValueData() length = %d, want %d", len(data), PinValueSize)
	}
	if data[0] != 0x0F {
		t.Errorf("PinValueData()[0] = 0x%02X, want 0x0F (little-endian)", data[0])
	}

	decoded, err := DecodePinValue(data)
	if err != nil {
		t.Fatalf("DecodePinValue() error = %v", err)
	}
	if decoded != value {
		t.Errorf("DecodePinValue() = 0x%X, want 0x%X", decoded, value)
	}
}

func TestDecodePinValue_WrongLength(t *testing.T) {
	if _, err := DecodePinValue([]byte{1, 2, 3}); err == nil {
		t.Error("DecodePinValue() with 3 bytes should fail")
	}
}

func TestOscDetectData(t *testing.T) {
	tests := []struct {
		reads    int
		expected byte
	}{
		{0, 0},
		{10, 10},
		{255, 255},
		{256, 0},
		{300, 44},
	}

	for _, tc := range tests {
		data := OscDetectData(tc.reads)
		if len(data) != 1 || data[0] != tc.expected {
			t.Errorf("OscDetectData(%d) = %v, want [%d]", tc.reads, data, tc.expected)
		}
	}
}

func TestDecodeVersion(t *testing.T) {
	tests := []struct {
		data     []byte
		expected string
	}{
		{[]byte("0.1.2\x00\x00\x00\x00\x00"), "0.1.2"},
		{[]byte("1.10.3-rc1"), "1.10.3-rc1"},
		{[]byte(" 2.0.0 \x00\x00\x00"), "2.0.0"},
		{[]byte("\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"), ""},
	}

	for _, tc := range tests {
		result := DecodeVersion(tc.data)
		if result != tc.expected {
			t.Errorf("DecodeVersion(%q) = %q, want %q", tc.data, result, tc.expected)
		}
	}
}

func TestXferData_Padding(t *testing.T) {
	data := XferData(XferClear, nil)
	if len(data) != 1+XferParamSize {
		t.Fatalf("XferData() length = %d, want %d", len(data), 1+XferParamSize)
	}
	if data[0] != XferClear {
		t.Errorf("XferData()[0] = 0x%02X, want 0x%02X", data[0], XferClear)
	}
	for i, b := range data[1:] {
		if b != 0 {
			t.Errorf("XferData()[%d] = 0x%02X, want 0x00", i+1, b)
		}
	}
}

func TestXferMaskData(t *testing.T) {
	data := XferMaskData(XferSetDataMask, 0x1122334455667788)
	if len(data) != 17 {
		t.Fatalf("XferMaskData() length = %d, want 17", len(data))
	}
	if data[0] != XferSetDataMask {
		t.Errorf("XferMaskData()[0] = 0x%02X, want 0x%02X", data[0], XferSetDataMask)
	}
	if v := binary.LittleEndian.Uint64(data[1:9]); v != 0x1122334455667788 {
		t.Errorf("XferMaskData() mask = 0x%X, want 0x1122334455667788", v)
	}
	if !bytes.Equal(data[9:], make([]byte, 8)) {
		t.Errorf("XferMaskData() tail = %v, want zeros", data[9:])
	}
}

func TestXferWidthData(t *testing.T) {
	data := XferWidthData(XferSetAddrWidth, 18)
	if data[0] != XferSetAddrWidth || data[1] != 18 {
		t.Errorf("XferWidthData() = %v, want [0x%02X 18 ...]", data, XferSetAddrWidth)
	}
	if !bytes.Equal(data[2:], make([]byte, 15)) {
		t.Errorf("XferWidthData() tail = %v, want zeros", data[2:])
	}
}

func TestXferMapData_Chunks(t *testing.T) {
	tests := []struct {
		entries int
		chunks  int
	}{
		{0, 0},
		{1, 1},
		{16, 1},
		{17, 2},
		{40, 3},
		{64, 4},
	}

	for _, tc := range tests {
		shiftMap := make([]byte, tc.entries)
		for i := range shiftMap {
			shiftMap[i] = byte(i + 1)
		}

		payloads, err := XferMapData(XferSetAddrMap, shiftMap)
		if err != nil {
			t.Fatalf("XferMapData(%d entries) error = %v", tc.entries, err)
		}
		if len(payloads) != tc.chunks {
			t.Errorf("XferMapData(%d entries) chunks = %d, want %d", tc.entries, len(payloads), tc.chunks)
			continue
		}

		for i, p := range payloads {
			if p[0] != XferSetAddrMap+byte(i) {
				t.Errorf("chunk %d sub-command = 0x%02X, want 0x%02X", i, p[0], XferSetAddrMap+byte(i))
			}
			if p[1] != byte(i*ShiftChunkSize+1) {
				t.Errorf("chunk %d first entry = %d, want %d", i, p[1], i*ShiftChunkSize+1)
			}
		}
	}
}

func TestXferMapData_LastChunkZeroPadded(t *testing.T) {
	shiftMap := []byte{5, 6, 7}
	payloads, err := XferMapData(XferSetDataMap, shiftMap)
	if err != nil {
		t.Fatalf("XferMapData() error = %v", err)
	}
	expected := append([]byte{XferSetDataMap, 5, 6, 7}, make([]byte, 13)...)
	if !bytes.Equal(payloads[0], expected) {
		t.Errorf("XferMapData() = %v, want %v", payloads[0], expected)
	}
}

func TestXferMapData_TooWide(t *testing.T) {
	if _, err := XferMapData(XferSetAddrMap, make([]byte, 65)); err == nil {
		t.Error("XferMapData() with 65 entries should fail")
	}
}

func TestResponseError_IsSoft(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ResponseError{Command: CmdModel, Reason: "checksum mismatch"})
	if !IsSoft(err) {
		t.Errorf("IsSoft(%v) = false, want true", err)
	}
	if IsSoft(ErrShortRead) {
		t.Error("IsSoft(ErrShortRead) = true, want false")
	}
}

func TestChecksumError_Is(t *testing.T) {
	err := errors.Wrap(&ChecksumError{Want: 0x1234, Got: 0x4321}, "block 2")
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("errors.Is(%v, ErrChecksumMismatch) = false, want true", err)
	}
	if IsSoft(err) {
		t.Error("block checksum error must not be soft")
	}
}
