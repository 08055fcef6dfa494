package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/paramxfer/internal/preset"
	"github.com/kolkov/paramxfer/transfer"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := transfer.GetInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "paramxfer version %s\n", info.Version)
			fmt.Fprintf(out, "  bitmap word: %d bits\n", info.WordBits)
			fmt.Fprintf(out, "  encoding:    %s\n", info.Encoding)
			fmt.Fprintf(out, "  preset:      %s\n", preset.FormatVersion)
			return nil
		},
	}
}
