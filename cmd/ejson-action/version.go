package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/ejson-action/internal/binary"
)

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(e.stdout, "ejson-action %s\n", Version)
			fmt.Fprintf(e.stdout, "  ejson     %s (default)\n", binary.DefaultVersions[binary.ToolEjson])
			fmt.Fprintf(e.stdout, "  ejsonkms  %s (default)\n", binary.DefaultVersions[binary.ToolEjsonKMS])
		},
	}
}
