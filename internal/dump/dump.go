// Package dump writes captured block transfer buffers to files.
package dump

import (
	"io"
	"os"

	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"
)

// Output formats
const (
	FormatBinary   = "bin"
	FormatIntelHex = "hex"
)

// hexLineLength is the number of data bytes per Intel HEX record.
const hexLineLength = 16

// WriteBinary writes data unchanged.
func WriteBinary(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// WriteIntelHex writes data as Intel HEX records starting at base.
func WriteIntelHex(w io.Writer, base uint32, data []byte) error {
	mem := gohex.NewMemory()
	if len(data) > 0 {
		if err := mem.AddBinary(base, data); err != nil {
			return errors.Wrap(err, "failed to build hex image")
		}
	}
	if err := mem.DumpIntelHex(w, hexLineLength); err != nil {
		return errors.Wrap(err, "failed to write hex image")
	}
	return nil
}

// Write writes data to w in the named format.
func Write(w io.Writer, format string, base uint32, data []byte) error {
	switch format {
	case FormatBinary:
		return WriteBinary(w, data)
	case FormatIntelHex:
		return WriteIntelHex(w, base, data)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

// WriteFile creates path and writes data to it in the named format.
func WriteFile(path, format string, base uint32, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	if err := Write(f, format, base, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
