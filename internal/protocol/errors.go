package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrBadResponse marks a soft failure: the response to a single command was
	// unusable, the input buffer has been flushed and the command may be retried.
	ErrBadResponse = errors.New("bad response")

	// ErrShortRead means the transport returned fewer bytes than the protocol requires.
	ErrShortRead = errors.New("short read")

	// ErrProtocolDesync means the byte stream no longer matches the protocol.
	// The session must be re-established with a handshake.
	ErrProtocolDesync = errors.New("protocol desync")

	// ErrChecksumMismatch is matched by every ChecksumError.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// ResponseError describes why a single-command response was rejected.
type ResponseError struct {
	Command byte
	Reason  string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s command (0x%02X): %s", CommandName(e.Command), e.Command, e.Reason)
}

// Is makes every ResponseError match ErrBadResponse.
func (e *ResponseError) Is(target error) bool {
	return target == ErrBadResponse
}

// ChecksumError reports a checksum that did not match the received data.
type ChecksumError struct {
	Want uint16
	Got  uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: calculated 0x%04X, received 0x%04X", e.Want, e.Got)
}

// Is makes every ChecksumError match ErrChecksumMismatch.
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// IsSoft returns true if err is a soft failure of a single command.
func IsSoft(err error) bool {
	return errors.Is(err, ErrBadResponse)
}
