// Package link implements the framing layer of the board protocol: the reset
// handshake and the single command transceive every board operation is built on.
//
// A Link is not safe for concurrent use. One operation must be in flight per
// transport; callers serialize access (the board command sets do so).
package link

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bigbag/dupico/internal/logger"
	"github.com/bigbag/dupico/internal/protocol"
)

// Transport is the byte channel to the board. Reads are bounded by the
// transport's read timeout: ReadExactly returns fewer than n bytes, without an
// error, when the timeout expires first.
type Transport interface {
	Write(data []byte) error
	ReadExactly(n int) ([]byte, error)
	ReadLine(max int) (string, error)
	SetDTR(value bool) error
	Flush() error
}

// Default handshake parameters
const (
	DefaultRetries     = 2
	DefaultSettleDelay = 500 * time.Millisecond
)

// Link drives the protocol over a Transport.
type Link struct {
	transport Transport
	retries   int
	settle    time.Duration
	lineLimit int
	connected bool
}

// Option configures a Link.
type Option func(*Link)

// WithRetries sets the number of handshake attempts.
func WithRetries(retries int) Option {
	return func(l *Link) {
		if retries > 0 {
			l.retries = retries
		}
	}
}

// WithSettleDelay sets the delay after each DTR edge during the handshake.
func WithSettleDelay(d time.Duration) Option {
	return func(l *Link) {
		if d >= 0 {
			l.settle = d
		}
	}
}

// WithLineLimit sets the maximum length of the handshake line.
func WithLineLimit(n int) Option {
	return func(l *Link) {
		if n > 0 {
			l.lineLimit = n
		}
	}
}

// New creates a new Link for the given transport.
func New(t Transport, opts ...Option) *Link {
	l := &Link{
		transport: t,
		retries:   DefaultRetries,
		settle:    DefaultSettleDelay,
		lineLimit: protocol.MaxLineLength,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connected reports whether the last handshake succeeded.
func (l *Link) Connected() bool {
	return l.connected
}

// Handshake resets the board through DTR and waits for the enabled marker line.
// It returns false when the marker was not seen within the retry budget.
func (l *Link) Handshake() (bool, error) {
	log := logger.Get()
	log.Debugf("attempting to detect board...")
	l.connected = false

	for attempt := 1; attempt <= l.retries; attempt++ {
		if err := l.resetBoard(); err != nil {
			return false, errors.Wrap(err, "reset board")
		}

		line, err := l.transport.ReadLine(l.lineLimit)
		if err != nil {
			return false, errors.Wrap(err, "read handshake line")
		}

		line = strings.TrimSpace(line)
		if line == protocol.BoardEnabled {
			log.Debugf("connection try %d succeeded", attempt)
			if err := l.transport.Flush(); err != nil {
				return false, errors.Wrap(err, "flush input")
			}
			l.connected = true
			return true, nil
		}
		log.Debugf("connection try %d failed, got %q", attempt, line)
	}

	log.Errorf("board detection failed after %d attempts", l.retries)
	return false, nil
}

// resetBoard pulses DTR and drops whatever the board sent before.
func (l *Link) resetBoard() error {
	if err := l.transport.SetDTR(false); err != nil {
		return err
	}
	if err := l.transport.Flush(); err != nil {
		return err
	}
	time.Sleep(l.settle)

	if err := l.transport.SetDTR(true); err != nil {
		return err
	}
	time.Sleep(l.settle)
	return nil
}

// Transceive sends a command and returns the response payload of respLen bytes.
//
// A response with the wrong opcode or a bad checksum is a soft failure: the
// input buffer is flushed and an error matching protocol.ErrBadResponse is
// returned. A payload shorter than respLen is a hard protocol.ErrShortRead.
func (l *Link) Transceive(cmd byte, data []byte, respLen int) ([]byte, error) {
	if err := l.Send(cmd, data); err != nil {
		return nil, err
	}

	name := protocol.CommandName(cmd)
	expected := protocol.ResponseCode(cmd)

	code, err := l.transport.ReadExactly(1)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response code", name)
	}
	if len(code) != 1 {
		return nil, l.reject(cmd, "no response")
	}
	if code[0] != expected {
		return nil, l.reject(cmd, "got response 0x%02X, expected 0x%02X", code[0], expected)
	}

	resp, err := l.transport.ReadExactly(respLen + 1) // payload + checksum
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", name)
	}
	if len(resp) != respLen+1 {
		return nil, errors.Wrapf(protocol.ErrShortRead, "%s response: got %d bytes, expected %d",
			name, len(resp), respLen+1)
	}

	frame := make([]byte, 0, len(code)+len(resp))
	frame = append(append(frame, code...), resp...)
	if !protocol.VerifyFrame(frame) {
		return nil, l.reject(cmd, "wrong checksum")
	}

	return resp[:respLen], nil
}

// Send writes a command frame without waiting for a response.
func (l *Link) Send(cmd byte, data []byte) error {
	req := protocol.NewRequest(cmd, data)
	if err := l.transport.Write(req.Encode()); err != nil {
		return errors.Wrapf(err, "write %s command", protocol.CommandName(cmd))
	}
	return nil
}

// reject flushes the input and builds the soft failure for cmd.
func (l *Link) reject(cmd byte, format string, args ...interface{}) error {
	rerr := &protocol.ResponseError{Command: cmd, Reason: fmt.Sprintf(format, args...)}
	logger.Get().Errorf("%v", rerr)

	if err := l.transport.Flush(); err != nil {
		return errors.Wrap(err, "flush input")
	}
	return rerr
}

// ReadExactly reads n raw bytes. Unlike Transceive, a short read is always a
// hard protocol.ErrShortRead.
func (l *Link) ReadExactly(n int) ([]byte, error) {
	data, err := l.transport.ReadExactly(n)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, errors.Wrapf(protocol.ErrShortRead, "got %d bytes, expected %d", len(data), n)
	}
	return data, nil
}

// Write writes raw bytes, bypassing framing.
func (l *Link) Write(data []byte) error {
	return l.transport.Write(data)
}

// Close closes the transport if it can be closed. The board observes a
// dropped connection and a new handshake is required.
func (l *Link) Close() error {
	if c, ok := l.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
