package protocol

// CommandChecksum computes the 8-bit frame checksum.
// It folds [0, b0, b1, ..., bn] by subtraction and keeps the low byte, so
// appending the result to the data makes the whole frame fold to zero.
func CommandChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum -= b
	}
	return sum
}

// VerifyFrame reports whether opcode, payload and trailing checksum fold to zero.
func VerifyFrame(frame []byte) bool {
	return CommandChecksum(frame) == 0
}

// BlockChecksum computes the 16-bit sum used for block transfer data blocks.
func BlockChecksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}
