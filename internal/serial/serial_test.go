package serial

import (
	"bytes"
	"errors"
	"testing"
)

// chunkPort hands out its input in fixed size pieces and reports a timeout
// (0 bytes) once it is drained.
type chunkPort struct {
	in      []byte
	chunk   int
	out     bytes.Buffer
	maxOut  int
	dtr     []bool
	resets  int
	closed  bool
	readErr error
}

func (c *chunkPort) Read(p []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	n := min(len(p), c.chunk, len(c.in))
	copy(p, c.in[:n])
	c.in = c.in[n:]
	return n, nil
}

func (c *chunkPort) Write(p []byte) (int, error) {
	n := len(p)
	if c.maxOut > 0 {
		n = min(n, c.maxOut)
	}
	c.out.Write(p[:n])
	return n, nil
}

func (c *chunkPort) SetDTR(dtr bool) error {
	c.dtr = append(c.dtr, dtr)
	return nil
}

func (c *chunkPort) ResetInputBuffer() error {
	c.resets++
	c.in = nil
	return nil
}

func (c *chunkPort) Close() error {
	c.closed = true
	return nil
}

func TestReadExactly(t *testing.T) {
	tests := []struct {
		in       string
		chunk    int
		n        int
		expected string
	}{
		{"abcdef", 1, 4, "abcd"},
		{"abcdef", 4, 6, "abcdef"},
		{"abc", 16, 8, "abc"},
		{"", 16, 2, ""},
	}

	for _, tc := range tests {
		p := newPort(&chunkPort{in: []byte(tc.in), chunk: tc.chunk}, "test", 115200)
		got, err := p.ReadExactly(tc.n)
		if err != nil {
			t.Fatalf("ReadExactly(%d) error = %v", tc.n, err)
		}
		if string(got) != tc.expected {
			t.Errorf("ReadExactly(%d) = %q, want %q", tc.n, got, tc.expected)
		}
	}
}

func TestReadExactly_Error(t *testing.T) {
	readErr := errors.New("device unplugged")
	p := newPort(&chunkPort{readErr: readErr}, "test", 115200)
	if _, err := p.ReadExactly(4); !errors.Is(err, readErr) {
		t.Errorf("ReadExactly() error = %v, want %v", err, readErr)
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		in       string
		max      int
		expected string
		rest     int
	}{
		{"REMOTE_CONTROL_ENABLED\r\nxx", 32, "REMOTE_CONTROL_ENABLED\r\n", 2},
		{"0123456789", 4, "0123", 6},
		{"partial", 32, "partial", 0},
	}

	for _, tc := range tests {
		raw := &chunkPort{in: []byte(tc.in), chunk: 64}
		p := newPort(raw, "test", 115200)
		line, err := p.ReadLine(tc.max)
		if err != nil {
			t.Fatalf("ReadLine() error = %v", err)
		}
		if line != tc.expected {
			t.Errorf("ReadLine(%d) = %q, want %q", tc.max, line, tc.expected)
		}
		if len(raw.in) != tc.rest {
			t.Errorf("ReadLine(%d) left %d bytes, want %d", tc.max, len(raw.in), tc.rest)
		}
	}
}

func TestWrite_Partial(t *testing.T) {
	raw := &chunkPort{maxOut: 3}
	p := newPort(raw, "test", 115200)

	frame := []byte{9, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0}
	if err := p.Write(frame); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.Equal(raw.out.Bytes(), frame) {
		t.Errorf("wrote %v, want %v", raw.out.Bytes(), frame)
	}
}

func TestControl(t *testing.T) {
	raw := &chunkPort{in: []byte("stale")}
	p := newPort(raw, "/dev/ttyACM0", 115200)

	if err := p.SetDTR(false); err != nil {
		t.Fatal(err)
	}
	if err := p.SetDTR(true); err != nil {
		t.Fatal(err)
	}
	if err := p.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	if len(raw.dtr) != 2 || raw.dtr[0] || !raw.dtr[1] {
		t.Errorf("DTR = %v, want [false true]", raw.dtr)
	}
	if raw.resets != 1 || len(raw.in) != 0 {
		t.Errorf("Flush() did not reset the input buffer")
	}
	if !raw.closed {
		t.Error("Close() did not close the port")
	}
	if p.PortName() != "/dev/ttyACM0" || p.BaudRate() != 115200 {
		t.Errorf("PortName(), BaudRate() = %q, %d", p.PortName(), p.BaudRate())
	}
}
