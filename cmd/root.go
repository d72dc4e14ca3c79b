// Package cmd is the naming server's process entrypoint: cobra command
// wiring, viper-backed flag binding, and the daemonization launch path,
// following the teacher's cmd/root.go structure.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsfs/naming/cfg"
)

var newConfig cfg.Config

// NewRootCmd builds the naming-server root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "naming-server",
		Short:        "Serve the distributed filesystem naming/metadata API.",
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			return runServe(c, args)
		},
	}

	if err := cfg.BindFlags(root.Flags()); err != nil {
		// BindFlags only fails if a flag is malformed at compile time; a
		// failure here is a programmer error, not a runtime condition.
		panic(fmt.Sprintf("cfg.BindFlags: %v", err))
	}

	root.PreRunE = func(c *cobra.Command, args []string) error {
		return viper.Unmarshal(&newConfig, viper.DecodeHook(cfg.DecodeHook()))
	}

	return root
}

// Execute runs the naming-server command line, exiting the process with a
// non-zero status on failure. It is the function cmd/naming-server/main.go
// calls.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
