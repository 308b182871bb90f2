// Package linktest provides a scripted board for exercising the protocol
// without hardware.
package linktest

import (
	"bytes"
	"errors"
	"sync"

	"github.com/bigbag/dupico/internal/protocol"
)

// ErrClosed is returned by a Fake after Close.
var ErrClosed = errors.New("linktest: transport closed")

// Fake is a link.Transport whose board side is a script: every Write makes
// the next scripted reply available for reading, every rising DTR edge makes
// the next boot output available. Flush discards unread input.
type Fake struct {
	// BlockWhenEmpty makes reads on an empty input wait until Close, like a
	// port whose read timeout is longer than the test.
	BlockWhenEmpty bool

	mu      sync.Mutex
	rx      []byte
	replies [][]byte
	boots   [][]byte
	writes  [][]byte
	flushes int
	dtr     []bool
	closed  bool
	done    chan struct{}
	readErr error
}

// NewFake creates an idle Fake.
func NewFake() *Fake {
	return &Fake{done: make(chan struct{})}
}

// Reply queues the bytes the board sends after the next unanswered Write.
// A nil reply means the board stays silent for that write.
func (f *Fake) Reply(replies ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

// Boot queues the output of the board after the next DTR reset.
func (f *Fake) Boot(outputs ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boots = append(f.boots, outputs...)
}

// Inject makes data immediately available for reading.
func (f *Fake) Inject(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, data...)
}

// SetReadError makes every following read fail with err.
func (f *Fake) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

// Write records data and releases the next scripted reply.
func (f *Fake) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.writes = append(f.writes, append([]byte(nil), data...))
	if len(f.replies) > 0 {
		f.rx = append(f.rx, f.replies[0]...)
		f.replies = f.replies[1:]
	}
	return nil
}

// ReadExactly returns up to n pending bytes.
func (f *Fake) ReadExactly(n int) ([]byte, error) {
	f.mu.Lock()
	if err := f.readableLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if len(f.rx) == 0 && f.BlockWhenEmpty {
		f.mu.Unlock()
		<-f.done
		return nil, ErrClosed
	}
	defer f.mu.Unlock()

	n = min(n, len(f.rx))
	out := append([]byte(nil), f.rx[:n]...)
	f.rx = f.rx[n:]
	return out, nil
}

// ReadLine returns pending bytes up to and including a newline, at most max bytes.
func (f *Fake) ReadLine(max int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readableLocked(); err != nil {
		return "", err
	}

	n := min(max, len(f.rx))
	if i := bytes.IndexByte(f.rx[:n], '\n'); i >= 0 {
		n = i + 1
	}
	line := string(f.rx[:n])
	f.rx = f.rx[n:]
	return line, nil
}

func (f *Fake) readableLocked() error {
	if f.closed {
		return ErrClosed
	}
	return f.readErr
}

// SetDTR records the control line; a rising edge releases the next boot output.
func (f *Fake) SetDTR(value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dtr = append(f.dtr, value)
	if value && len(f.boots) > 0 {
		f.rx = append(f.rx, f.boots[0]...)
		f.boots = f.boots[1:]
	}
	return nil
}

// Flush discards pending input.
func (f *Fake) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	f.rx = nil
	return nil
}

// Close closes the fake and wakes blocked readers.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

// Writes returns every frame written so far.
func (f *Fake) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

// Flushes returns how many times the input was flushed.
func (f *Fake) Flushes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

// DTR returns the recorded control line levels.
func (f *Fake) DTR() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.dtr...)
}

// Pending returns the number of unread input bytes.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rx)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Response builds a valid response frame for cmd carrying payload.
func Response(cmd byte, payload []byte) []byte {
	frame := append([]byte{protocol.ResponseCode(cmd)}, payload...)
	return append(frame, protocol.CommandChecksum(frame))
}

// Corrupt returns a copy of frame with the lowest bit of its checksum flipped.
func Corrupt(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	out[len(out)-1] ^= 0x01
	return out
}
