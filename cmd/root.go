package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/josephlewis42/lish/core"
	"github.com/josephlewis42/lish/core/config"
	"github.com/josephlewis42/lish/core/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgPath      string
	eventLogPath string
	debug        bool
	sexy         bool
	command      string
)

func loadConfig() (*config.Configuration, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultDir()
	}
	return config.LoadOrDefault(afero.NewOsFs(), path)
}

// openEventLog returns the event logger and a function closing it.
func openEventLog(cfg *config.Configuration) (*logger.Logger, func(), error) {
	if eventLogPath != "" {
		cfg.EventLog = eventLogPath
	}
	if cfg.EventLog == "" {
		return logger.Discard(), func() {}, nil
	}

	fd, err := cfg.OpenEventLog()
	if err != nil {
		return nil, nil, fmt.Errorf("event log: %w", err)
	}
	return logger.NewJsonLinesLogRecorder(fd), func() { fd.Close() }, nil
}

// childFlags are the flags helper processes need to behave like this one.
func childFlags(name string) []string {
	flags := []string{"--name", name}
	if cfgPath != "" {
		flags = append(flags, "--config", cfgPath)
	}
	if eventLogPath != "" {
		flags = append(flags, "--event-log", eventLogPath)
	}
	if debug {
		flags = append(flags, "--debug")
	}
	return flags
}

func promptHelp() string {
	var b strings.Builder
	b.WriteString("A small interactive shell with pipelines, redirections, background\n")
	b.WriteString("jobs and a history shared by every running shell of the user.\n\n")
	b.WriteString("PS1 escapes:\n")
	for _, esc := range core.PromptEscapes {
		fmt.Fprintf(&b, "  %-10s %s\n", esc[0], esc[1])
	}
	return b.String()
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "lish",
	Short:   core.DisplayName + " shell",
	Long:    promptHelp(),
	Version: core.Version,
	Args:    cobra.NoArgs,
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

		name := core.ExeName(os.Args[0])
		shell, err := core.NewShell(core.Options{
			Config:     cfg,
			Name:       name,
			Debug:      debug,
			Sexy:       sexy,
			Dedicated:  cmd.Flags().Changed("command"),
			Logger:     events.NewSession(),
			ChildFlags: childFlags(name),
		})
		if err != nil {
			closeLog()
			return err
		}

		var status int
		if cmd.Flags().Changed("command") {
			status = shell.RunCommand(command)
		} else {
			status = shell.Run()
		}
		closeLog()
		os.Exit(status)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func versionText(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", core.DisplayName, core.Version)
	fmt.Fprintln(w, "Lish is free software: you may redistribute and modify it.")
	fmt.Fprintln(w, "There is NO WARRANTY, to the extent permitted by law.")
}

func init() {
	var b strings.Builder
	versionText(&b)
	rootCmd.SetVersionTemplate(b.String())

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file or directory (default "+config.DefaultDir()+")")
	rootCmd.PersistentFlags().StringVar(&eventLogPath, "event-log", "", "append JSON lines events to this file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "dump every parsed command tree to stderr")

	rootCmd.Flags().BoolVarP(&sexy, "sexy", "s", false, "use the coloured prompt")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run one command line and exit")
}
