package cmd

import (
	"os"

	"github.com/josephlewis42/lish/core"
	"github.com/josephlewis42/lish/core/engine"
	"github.com/spf13/cobra"
)

var childName string

// childCmd is run by the shell itself for builtins inside pipelines,
// subshells and background jobs.
var childCmd = &cobra.Command{
	Use:    engine.ChildCommand + " -- kind nfds payload...",
	Hidden: true,
	Args:   cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		events, closeLog, err := openEventLog(cfg)
		if err != nil {
			return err
		}

		shell, err := core.NewShell(core.Options{
			Config:     cfg,
			Name:       childName,
			Debug:      debug,
			Dedicated:  true,
			Logger:     events.NewSession(),
			ChildFlags: childFlags(childName),
		})
		if err != nil {
			closeLog()
			return err
		}

		status := shell.RunChild(args)
		closeLog()
		os.Exit(status)
		return nil
	},
}

func init() {
	childCmd.Flags().StringVar(&childName, "name", "lish", "name used in diagnostics")
	rootCmd.AddCommand(childCmd)
}
