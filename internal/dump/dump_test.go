package dump

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcinbor85/gohex"
)

func capture(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 13)
	}
	return data
}

func TestWriteBinary(t *testing.T) {
	var buf bytes.Buffer
	data := capture(1024)
	if err := Write(&buf, FormatBinary, 0, data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Error("binary output differs from the capture")
	}
}

func TestWriteIntelHex(t *testing.T) {
	tests := []struct {
		base uint32
		size int
	}{
		{0, 1024},
		{0x10000, 2048},
		{0x8000, 5},
	}

	for _, tc := range tests {
		var buf bytes.Buffer
		data := capture(tc.size)
		if err := Write(&buf, FormatIntelHex, tc.base, data); err != nil {
			t.Fatalf("Write(hex) error = %v", err)
		}
		if !strings.HasSuffix(strings.TrimSpace(buf.String()), ":00000001FF") {
			t.Errorf("hex output does not end with an EOF record")
		}

		mem := gohex.NewMemory()
		if err := mem.ParseIntelHex(&buf); err != nil {
			t.Fatalf("ParseIntelHex() error = %v", err)
		}
		back := mem.ToBinary(tc.base, uint32(tc.size), 0xFF)
		if !bytes.Equal(back, data) {
			t.Errorf("hex image at 0x%X does not round trip", tc.base)
		}
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, "srec", 0, nil); err == nil {
		t.Error("Write(srec) should fail")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	data := capture(100)
	if err := WriteFile(path, FormatBinary, 0, data); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("file contents differ from the capture")
	}
}
