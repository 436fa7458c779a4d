package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/smazurov/boardnode/internal/led"
	"github.com/spf13/cobra"
)

// CreateDecodeCmd creates the decode command.
func CreateDecodeCmd() *cobra.Command {
	var from int

	cmd := &cobra.Command{
		Use:   "decode <byte>",
		Short: "Explain an LED device write",
		Long: `Explains how a byte written to the leds device is applied. Bits 7..6 select the mode ` +
			`(00 absolute, 01 set bits, 10 clear bits, 11 rejected) and bits 5..0 are the mask. ` +
			`Accepts decimal, 0x hex or 0b binary.`,
		Example: "  boardnode decode 0x42 --from 5",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseByte(args[0])
			if err != nil {
				return err
			}
			if from < 0 || from > led.MaxValue {
				return fmt.Errorf("--from must be in [0,%d], got %d", led.MaxValue, from)
			}
			return explain(cmd.OutOrStdout(), v, uint8(from))
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "Bank value the write is applied to")
	return cmd
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q: %w", s, err)
	}
	return byte(v), nil
}

func explain(w io.Writer, v byte, from uint8) error {
	fmt.Fprintf(w, "byte:   0x%02x (%08b)\n", v, v)
	parsed, err := led.ParseCommand(v)
	if err != nil {
		fmt.Fprintf(w, "mode:   invalid\n")
		return err
	}
	next := parsed.Next(from)
	fmt.Fprintf(w, "mode:   %s\n", parsed.Mode)
	fmt.Fprintf(w, "mask:   %06b\n", parsed.Mask)
	fmt.Fprintf(w, "result: %d (%06b) -> %d (%06b)\n", from, from, next, next)
	return nil
}
