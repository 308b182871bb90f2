package protocol

// BoardEnabled is the line the board prints once after a DTR reset.
const BoardEnabled = "REMOTE_CONTROL_ENABLED"

// MaxLineLength bounds the handshake line read.
const MaxLineLength = 32

// Response payload sizes
const (
	ModelResponseSize   = 1
	VersionResponseSize = 10
	StatusResponseSize  = 1
	PinValueSize        = 8
	XferAckSize         = 1
)

// Block transfer parameters
const (
	BlockSize         = 1024 // 1KB blocks
	BlockChecksumSize = 2
	MarkerSize        = 4
	XferParamSize     = 16 // parameter area following the sub-command byte
	ShiftChunkSize    = 16 // bit-index entries per map upload
	MaxShiftChunks    = 4
	TrailerSize       = 3 // response opcode + parameter + checksum
)

// Default baud rate
const DefaultBaudRate = 115200
