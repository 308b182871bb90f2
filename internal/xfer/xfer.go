// Package xfer implements the block transfer session used to stream capture
// buffers off the board.
package xfer

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bigbag/dupico/internal/link"
	"github.com/bigbag/dupico/internal/logger"
	"github.com/bigbag/dupico/internal/pinmap"
	"github.com/bigbag/dupico/internal/protocol"
)

// ProgressCallback is called after every accepted block with the number of
// bytes received so far.
type ProgressCallback func(received int)

// Pins selects the socket pins taking part in a capture.
type Pins struct {
	Address []int // address lines, least significant first
	Data    []int // data lines, least significant first
	Hi      []int // pins driven high during the capture
}

// Session drives one block transfer over a link.
type Session struct {
	link     *link.Link
	pins     *pinmap.Map
	opcode   byte
	progress ProgressCallback
}

// New creates a new Session using the board's pin map. opcode is the command
// the generation exposes block transfers under.
func New(l *link.Link, m *pinmap.Map, opcode byte) *Session {
	return &Session{link: l, pins: m, opcode: opcode}
}

// SetProgressCallback sets the progress callback function.
func (s *Session) SetProgressCallback(cb ProgressCallback) {
	s.progress = cb
}

// reportProgress calls the progress callback if set.
func (s *Session) reportProgress(received int) {
	if s.progress != nil {
		s.progress(received)
	}
}

// setup holds the register values derived from a Pins selection.
type setup struct {
	addrMap  []byte
	dataMap  []byte
	hiMask   uint64
	dataMask uint64
}

func (s *Session) plan(p Pins) (*setup, error) {
	addrMap, err := s.pins.ShiftMap(p.Address)
	if err != nil {
		return nil, errors.Wrap(err, "address map")
	}
	dataMap, err := s.pins.ShiftMap(p.Data)
	if err != nil {
		return nil, errors.Wrap(err, "data map")
	}
	hiMask, err := s.pins.ValueToPins(p.Hi, ^uint64(0))
	if err != nil {
		return nil, errors.Wrap(err, "hi-out mask")
	}
	dataMask, err := s.pins.ValueToPins(p.Data, ^uint64(0))
	if err != nil {
		return nil, errors.Wrap(err, "data mask")
	}
	return &setup{addrMap: addrMap, dataMap: dataMap, hiMask: hiMask, dataMask: dataMask}, nil
}

// Configure clears the board's transfer configuration and uploads the shift
// maps, masks and widths for p. Pin errors are reported before anything is
// written. Any rejected setup command aborts the configuration.
func (s *Session) Configure(p Pins) error {
	st, err := s.plan(p)
	if err != nil {
		return err
	}

	addrChunks, err := protocol.XferMapData(protocol.XferSetAddrMap, st.addrMap)
	if err != nil {
		return errors.Wrap(err, "address map")
	}
	dataChunks, err := protocol.XferMapData(protocol.XferSetDataMap, st.dataMap)
	if err != nil {
		return errors.Wrap(err, "data map")
	}

	payloads := [][]byte{protocol.XferData(protocol.XferClear, nil)}
	payloads = append(payloads, addrChunks...)
	payloads = append(payloads, dataChunks...)
	payloads = append(payloads,
		protocol.XferMaskData(protocol.XferSetHiOutMask, st.hiMask),
		protocol.XferMaskData(protocol.XferSetDataMask, st.dataMask),
		protocol.XferWidthData(protocol.XferSetAddrWidth, len(p.Address)),
		protocol.XferWidthData(protocol.XferSetDataWidth, len(p.Data)),
	)

	for _, payload := range payloads {
		if _, err := s.link.Transceive(s.opcode, payload, protocol.XferAckSize); err != nil {
			return errors.Wrapf(err, "setup sub-command 0x%02X", payload[0])
		}
	}

	logger.Get().Debugf("block transfer configured: %d address, %d data pins, hi mask 0x%X, data mask 0x%X",
		len(p.Address), len(p.Data), st.hiMask, st.dataMask)
	return nil
}

// Execute starts the transfer on a configured board and returns the assembled
// buffer. No partial data is returned on failure.
//
// Cancelling ctx closes the underlying transport; the board sees a dropped
// connection and a new handshake is needed.
func (s *Session) Execute(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "block transfer")
	}

	stop := context.AfterFunc(ctx, func() {
		s.link.Close()
	})
	defer stop()

	data, err := s.execute()
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, errors.Wrap(cerr, "block transfer cancelled")
		}
		return nil, err
	}
	return data, nil
}

func (s *Session) execute() ([]byte, error) {
	log := logger.Get()

	if err := s.link.Send(s.opcode, protocol.XferData(protocol.XferExecuteRead, nil)); err != nil {
		return nil, err
	}

	buf := []byte{}
	for block := 0; ; block++ {
		raw, err := s.link.ReadExactly(protocol.MarkerSize)
		if err != nil {
			return nil, errors.Wrapf(err, "read marker %d", block)
		}

		marker := binary.BigEndian.Uint32(raw)
		switch marker {
		case protocol.MarkerBlockStart:
		case protocol.MarkerDone:
			log.Infof("block transfer done, %d bytes", len(buf))
			if err := s.readTrailer(); err != nil {
				return nil, err
			}
			return buf, nil
		default:
			return nil, errors.Wrapf(protocol.ErrProtocolDesync, "%s 0x%08X after %d blocks",
				protocol.MarkerName(marker), marker, block)
		}

		data, err := s.readBlock(block)
		if err != nil {
			return nil, err
		}
		buf = append(buf, data...)
		log.Debugf("block %d accepted, %d bytes total", block, len(buf))
		s.reportProgress(len(buf))
	}
}

// readBlock reads one block and its checksum, and acknowledges it.
func (s *Session) readBlock(block int) ([]byte, error) {
	data, err := s.link.ReadExactly(protocol.BlockSize)
	if err != nil {
		return nil, errors.Wrapf(err, "read block %d", block)
	}
	sum, err := s.link.ReadExactly(protocol.BlockChecksumSize)
	if err != nil {
		return nil, errors.Wrapf(err, "read block %d checksum", block)
	}

	want := protocol.BlockChecksum(data)
	got := binary.LittleEndian.Uint16(sum)
	if want != got {
		return nil, errors.Wrapf(&protocol.ChecksumError{Want: want, Got: got}, "block %d", block)
	}

	if err := s.link.Write(sum); err != nil {
		return nil, errors.Wrapf(err, "acknowledge block %d", block)
	}
	return data, nil
}

// readTrailer consumes the final response frame of the transfer command.
func (s *Session) readTrailer() error {
	trailer, err := s.link.ReadExactly(protocol.TrailerSize)
	if err != nil {
		return errors.Wrap(err, "read transfer trailer")
	}
	if expected := protocol.ResponseCode(s.opcode); trailer[0] != expected {
		return errors.Wrapf(protocol.ErrProtocolDesync, "trailer response 0x%02X, expected 0x%02X",
			trailer[0], expected)
	}
	if !protocol.VerifyFrame(trailer) {
		return errors.Wrap(protocol.ErrProtocolDesync, "trailer checksum")
	}
	return nil
}

// Read configures the board for p and runs the transfer.
func (s *Session) Read(ctx context.Context, p Pins) ([]byte, error) {
	if err := s.Configure(p); err != nil {
		return nil, err
	}
	return s.Execute(ctx)
}
