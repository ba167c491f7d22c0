package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the eventual client.
// It registers the write, list and repl commands.
func NewRoot(addr AddrFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "eventual",
		Short: "eventual client commands",
	}
	root.AddCommand(Commands(addr)...)
	return root
}
