package commands

// History lists the shared command history or clears it with -c.
func History(p Proc) int {
	cmd := &SimpleCommand{
		Use:   "history [-c]",
		Short: "Display or clear the command history.",
	}

	opts := cmd.Flags()
	wipe := opts.Bool('c', "clear the history")

	return cmd.Run(p, func() int {
		if opts.NArgs() > 0 {
			errorf(p, "syntax error: %s", cmd.Use)
			return 1
		}

		hist, err := p.History()
		if err != nil {
			errorf(p, "%s", err)
			return 127
		}

		if *wipe {
			err = hist.Clear()
		} else {
			err = hist.List(p.Stdout())
		}
		if err != nil {
			errorf(p, "%s", err)
			return 127
		}

		return 0
	})
}

func init() {
	addBuiltin("history", History)
}
