package protocol

import (
	"testing"
)

func TestResponseCode(t *testing.T) {
	tests := []struct {
		cmd      byte
		expected byte
	}{
		{CmdWrite, 0x80},
		{CmdModel, 0x84},
		{CmdVersion, 0x86},
		{CmdXfer, 0x89},
	}

	for _, tc := range tests {
		result := ResponseCode(tc.cmd)
		if result != tc.expected {
			t.Errorf("ResponseCode(0x%02X) = 0x%02X, want 0x%02X", tc.cmd, result, tc.expected)
		}
	}
}

func TestCommandName_KnownCommands(t *testing.T) {
	tests := []struct {
		cmd      byte
		expected string
	}{
		{CmdWrite, "write"},
		{CmdRead, "read"},
		{CmdReset, "reset"},
		{CmdPower, "power"},
		{CmdModel, "model"},
		{CmdTest, "test"},
		{CmdVersion, "version"},
		{CmdOscDet, "osc-detect"},
		{CmdXfer, "xfer"},
		{ResponseCode(CmdXfer), "xfer"},
	}

	for _, tc := range tests {
		result := CommandName(tc.cmd)
		if result != tc.expected {
			t.Errorf("CommandName(0x%02X) = %q, want %q", tc.cmd, result, tc.expected)
		}
	}
}

func TestCommandName_Unknown(t *testing.T) {
	unknown := []byte{0x07, 0x0A, 0x7F}
	for _, cmd := range unknown {
		result := CommandName(cmd)
		if result != "unknown" {
			t.Errorf("CommandName(0x%02X) = %q, want %q", cmd, result, "unknown")
		}
	}
}

func TestMarkerName(t *testing.T) {
	tests := []struct {
		marker   uint32
		expected string
	}{
		{MarkerBlockStart, "block start"},
		{MarkerFail, "transfer failed"},
		{MarkerDone, "transfer done"},
		{0x00000000, "unknown marker"},
	}

	for _, tc := range tests {
		result := MarkerName(tc.marker)
		if result != tc.expected {
			t.Errorf("MarkerName(0x%08X) = %q, want %q", tc.marker, result, tc.expected)
		}
	}
}

func TestMarkersAreDistinct(t *testing.T) {
	if MarkerBlockStart == MarkerDone || MarkerBlockStart == MarkerFail || MarkerDone == MarkerFail {
		t.Error("block transfer markers must be distinct")
	}
}
