package board

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/bigbag/dupico/internal/fwversion"
	"github.com/bigbag/dupico/internal/link"
	"github.com/bigbag/dupico/internal/logger"
)

// ErrNoBoard is returned when the board did not answer the handshake.
var ErrNoBoard = errors.New("board not detected")

// Info describes a connected board.
type Info struct {
	Model   int
	Version fwversion.Version
}

func (i *Info) String() string {
	return fmt.Sprintf("model %d, firmware %s", i.Model, i.Version)
}

// Connect performs the handshake on l, identifies the board and returns the
// command set matching it.
func Connect(l *link.Link) (Commands, *Info, error) {
	ok, err := l.Handshake()
	if err != nil {
		return nil, nil, errors.Wrap(err, "handshake")
	}
	if !ok {
		return nil, nil, ErrNoBoard
	}

	model, err := QueryModel(l)
	if err != nil {
		return nil, nil, err
	}
	raw, err := QueryVersion(l)
	if err != nil {
		return nil, nil, err
	}

	version, err := fwversion.Parse(raw)
	if err != nil {
		return nil, nil, errors.Wrap(err, "firmware version")
	}

	newCommands, err := Resolve(model, version.Major)
	if err != nil {
		return nil, nil, err
	}

	info := &Info{Model: model, Version: version}
	logger.Get().Infof("connected to board: %s", info)
	return newCommands(l), info, nil
}
