// Package serial provides the board transport over a serial port.
package serial

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/bigbag/dupico/internal/link"
)

var _ link.Transport = (*Port)(nil)

// DefaultReadTimeout bounds every read on the port.
const DefaultReadTimeout = time.Second

// rawPort is the part of serial.Port the transport uses.
type rawPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetDTR(dtr bool) error
	ResetInputBuffer() error
	Close() error
}

// Port wraps a serial port as a link.Transport.
type Port struct {
	port     rawPort
	portName string
	baudRate int
}

// Open opens a serial port in 8N1 mode with the specified baud rate. Reads
// give up after readTimeout without data.
func Open(portName string, baudRate int, readTimeout time.Duration) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open port %s", portName)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to set read timeout")
	}

	return newPort(port, portName, baudRate), nil
}

func newPort(port rawPort, portName string, baudRate int) *Port {
	return &Port{
		port:     port,
		portName: portName,
		baudRate: baudRate,
	}
}

// Close closes the serial port.
func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Write writes all of data to the serial port.
func (p *Port) Write(data []byte) error {
	for len(data) > 0 {
		n, err := p.port.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("serial write made no progress")
		}
		data = data[n:]
	}
	return nil
}

// ReadExactly reads n bytes. It returns fewer bytes, and no error, when the
// read timeout expires first.
func (p *Port) ReadExactly(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := p.port.Read(buf[got:])
		if err != nil {
			return buf[:got], err
		}
		if m == 0 {
			break // timeout
		}
		got += m
	}
	return buf[:got], nil
}

// ReadLine reads up to and including a newline, at most max bytes. A partial
// line is returned when the read timeout expires.
func (p *Port) ReadLine(max int) (string, error) {
	line := make([]byte, 0, max)
	b := make([]byte, 1)
	for len(line) < max {
		n, err := p.port.Read(b)
		if err != nil {
			return string(line), err
		}
		if n == 0 {
			break
		}
		line = append(line, b[0])
		if b[0] == '\n' {
			break
		}
	}
	return string(line), nil
}

// Flush discards any buffered input.
func (p *Port) Flush() error {
	return p.port.ResetInputBuffer()
}

// SetDTR sets the DTR signal.
func (p *Port) SetDTR(value bool) error {
	return p.port.SetDTR(value)
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the current baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}
