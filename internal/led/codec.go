package led

import (
	"fmt"

	"github.com/smazurov/boardnode/internal/errcode"
)

// NumLines is the number of LEDs in the bank.
const NumLines = 6

// MaxValue is the largest value the bank can hold.
const MaxValue = 1<<NumLines - 1

const (
	valueMask = 0x3F
	modeShift = 6
)

// Mode selects how a written byte is applied to the bank. It is carried in
// bits 7..6 of the byte.
type Mode uint8

// Write modes.
const (
	ModeAbsolute Mode = 0b00 // overwrite every line
	ModeSet      Mode = 0b01 // turn on the lines whose mask bit is 1
	ModeClear    Mode = 0b10 // turn off the lines whose mask bit is 1
	modeInvalid  Mode = 0b11
)

func (m Mode) String() string {
	switch m {
	case ModeAbsolute:
		return "absolute"
	case ModeSet:
		return "set"
	case ModeClear:
		return "clear"
	default:
		return "invalid"
	}
}

// Command is a parsed LED write.
type Command struct {
	Mode Mode
	Mask uint8
}

// ParseCommand splits a wire byte into mode and 6-bit mask. Both mode bits
// set is rejected with an INVALID_MODE error.
func ParseCommand(v byte) (Command, error) {
	mode := Mode(v >> modeShift)
	if mode == modeInvalid {
		return Command{}, errcode.New(errcode.InvalidMode,
			fmt.Sprintf("byte 0x%02x has both mode bits set", v), nil)
	}
	return Command{Mode: mode, Mask: v & valueMask}, nil
}

// Absolute returns a command that overwrites the bank with v.
func Absolute(v uint8) Command { return Command{Mode: ModeAbsolute, Mask: v & valueMask} }

// SetBits returns a command that turns on the lines in mask.
func SetBits(mask uint8) Command { return Command{Mode: ModeSet, Mask: mask & valueMask} }

// ClearBits returns a command that turns off the lines in mask.
func ClearBits(mask uint8) Command { return Command{Mode: ModeClear, Mask: mask & valueMask} }

// Byte encodes the command back into its wire form.
func (c Command) Byte() byte {
	return byte(c.Mode)<<modeShift | c.Mask&valueMask
}

// Next returns the bank value after applying c to current.
func (c Command) Next(current uint8) uint8 {
	current &= valueMask
	switch c.Mode {
	case ModeSet:
		return current | c.Mask
	case ModeClear:
		return current &^ c.Mask
	default:
		return c.Mask
	}
}

func (c Command) String() string {
	return fmt.Sprintf("%s(0b%06b)", c.Mode, c.Mask)
}
