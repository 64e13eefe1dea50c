// Package cli implements the invoice-intake command line.
package cli

import (
	"github.com/spf13/cobra"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version   string
	BuildTime string
}

// NewRootCommand creates the root command for the invoice-intake CLI.
func NewRootCommand(info BuildInfo) *cobra.Command {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}

	cmd := &cobra.Command{
		Use:   "invoice-intake",
		Short: "Invoice intake service",
		Long: `Accepts PDF invoice uploads, tracks each invoice through a simulated
processing lifecycle and serves a filterable, paginated invoice list.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand(info))
	cmd.AddCommand(NewVersionCommand(info))

	return cmd
}
