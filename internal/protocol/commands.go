package protocol

// Board command opcodes
const (
	CmdWrite   = 0x00
	CmdRead    = 0x01
	CmdReset   = 0x02
	CmdPower   = 0x03
	CmdModel   = 0x04
	CmdTest    = 0x05
	CmdVersion = 0x06
	CmdOscDet  = 0x08
	CmdXfer    = 0x09
)

// ResponseFlag is ORed into a request opcode to form the response opcode.
const ResponseFlag = 0x80

// ResponseCode returns the opcode the board answers a command with.
func ResponseCode(cmd byte) byte {
	return cmd | ResponseFlag
}

// CommandName returns human-readable name for an opcode
func CommandName(cmd byte) string {
	switch cmd &^ ResponseFlag {
	case CmdWrite:
		return "write"
	case CmdRead:
		return "read"
	case CmdReset:
		return "reset"
	case CmdPower:
		return "power"
	case CmdModel:
		return "model"
	case CmdTest:
		return "test"
	case CmdVersion:
		return "version"
	case CmdOscDet:
		return "osc-detect"
	case CmdXfer:
		return "xfer"
	default:
		return "unknown"
	}
}

// Block transfer sub-commands. Map sub-commands are offset by the chunk index.
const (
	XferSetAddrMap   = 0x00
	XferSetDataMap   = 0x10
	XferSetHiOutMask = 0xE0
	XferSetDataMask  = 0xE1
	XferSetAddrWidth = 0xE2
	XferSetDataWidth = 0xE3
	XferClear        = 0xF0
	XferExecuteRead  = 0xFF
)

// Block transfer stream markers (big-endian on the wire)
const (
	MarkerBlockStart = 0xDEADBEEF
	MarkerFail       = 0xBAADF00D
	MarkerDone       = 0xC00FFFEE
)

// MarkerName returns human-readable name for a stream marker
func MarkerName(marker uint32) string {
	switch marker {
	case MarkerBlockStart:
		return "block start"
	case MarkerFail:
		return "transfer failed"
	case MarkerDone:
		return "transfer done"
	default:
		return "unknown marker"
	}
}
