package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smazurov/boardnode/internal/board"
	"github.com/spf13/cobra"
)

// CreatePinsCmd creates the pins command.
func CreatePinsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pins",
		Short: "Print the board pin table",
		Long:  `Prints the fixed BCM pin assignment of the LED bank, the two buttons and the speaker.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printPins(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")
	return cmd
}

func printPins(w io.Writer, asJSON bool) error {
	pins := board.Pins()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pins)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tBCM\tROLE\tBIT")
	for _, p := range pins {
		bit := "-"
		for i, l := range board.LEDPins {
			if l == p {
				bit = fmt.Sprint(i)
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Name, p.Offset, p.Role, bit)
	}
	return tw.Flush()
}
