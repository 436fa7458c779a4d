package led

import (
	"testing"

	"github.com/smazurov/boardnode/internal/errcode"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		in       byte
		wantMode Mode
		wantMask uint8
		wantErr  bool
	}{
		{name: "absolute", in: 0b00_101010, wantMode: ModeAbsolute, wantMask: 0b101010},
		{name: "absolute zero", in: 0x00, wantMode: ModeAbsolute, wantMask: 0},
		{name: "set bit1", in: 0b01_000010, wantMode: ModeSet, wantMask: 0b000010},
		{name: "clear all", in: 0b10_111111, wantMode: ModeClear, wantMask: 0b111111},
		{name: "both mode bits", in: 0b11_000001, wantErr: true},
		{name: "0xff", in: 0xFF, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.in)
			if tt.wantErr {
				if errcode.Of(err) != errcode.InvalidMode {
					t.Fatalf("ParseCommand(0x%02x) error = %v, want INVALID_MODE", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand(0x%02x) error = %v", tt.in, err)
			}
			if cmd.Mode != tt.wantMode || cmd.Mask != tt.wantMask {
				t.Errorf("ParseCommand(0x%02x) = %v, want %s mask 0b%06b", tt.in, cmd, tt.wantMode, tt.wantMask)
			}
		})
	}
}

func TestCommandByteRoundTrip(t *testing.T) {
	for v := 0; v < 0xC0; v++ {
		cmd, err := ParseCommand(byte(v))
		if err != nil {
			t.Fatalf("ParseCommand(0x%02x) error = %v", v, err)
		}
		if got := cmd.Byte(); got != byte(v) {
			t.Fatalf("Byte() = 0x%02x, want 0x%02x", got, v)
		}
	}
}

func TestCommandNext(t *testing.T) {
	tests := []struct {
		cmd     Command
		current uint8
		want    uint8
	}{
		{Absolute(0b000101), 0b111000, 0b000101},
		{SetBits(0b000010), 0b000110, 0b000110},
		{SetBits(0b100001), 0b000110, 0b100111},
		{ClearBits(0b000110), 0b000111, 0b000001},
		{ClearBits(0b110000), 0b000111, 0b000111},
	}

	for _, tt := range tests {
		if got := tt.cmd.Next(tt.current); got != tt.want {
			t.Errorf("%v.Next(0b%06b) = 0b%06b, want 0b%06b", tt.cmd, tt.current, got, tt.want)
		}
	}
}

func TestCommandNext_Monotonic(t *testing.T) {
	for cur := uint8(0); cur <= MaxValue; cur++ {
		for mask := uint8(0); mask <= MaxValue; mask++ {
			set := SetBits(mask).Next(cur)
			if set&cur != cur {
				t.Fatalf("SetBits(0b%06b) turned a line off: 0b%06b -> 0b%06b", mask, cur, set)
			}
			clr := ClearBits(mask).Next(cur)
			if clr|cur != cur {
				t.Fatalf("ClearBits(0b%06b) turned a line on: 0b%06b -> 0b%06b", mask, cur, clr)
			}
		}
	}
}

func TestModeString(t *testing.T) {
	want := map[Mode]string{
		ModeAbsolute: "absolute",
		ModeSet:      "set",
		ModeClear:    "clear",
		modeInvalid:  "invalid",
	}
	for m, s := range want {
		if m.String() != s {
			t.Errorf("Mode(%d).String() = %q, want %q", m, m.String(), s)
		}
	}
}
