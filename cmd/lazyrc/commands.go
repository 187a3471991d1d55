package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/lazyrc/internal/app"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start up and fire triggers read from stdin",
		Long: `Run activates eager extensions, then reads one trigger per line from
stdin until it is closed. Blank lines and lines starting with # are
ignored. Failures are logged and do not stop the loop.

Example:
  printf 'ft:main.go\ncmd:Telescope\n' | lazyrc run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := flags.open(true)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			if _, err := application.ServeMetrics(); err != nil {
				return err
			}

			ctx := cmd.Context()
			startErr := application.Startup(ctx)
			runErr := application.Run(ctx, cmd.InOrStdin())
			if ctx.Err() != nil {
				// Interrupted.
				return nil
			}
			return errors.Join(startErr, runErr)
		},
	}
}

func newFireCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fire <trigger>...",
		Short: "Start up and fire triggers in order",
		Example: `  lazyrc fire ft:main.go
  lazyrc fire 'key:n:<leader>ff' cmd:Telescope`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := flags.open(false)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			ctx := cmd.Context()
			errs := []error{application.Startup(ctx)}
			for _, text := range args {
				errs = append(errs, application.FireText(ctx, text))
			}
			printStatus(cmd.OutOrStdout(), application.Status())
			return errors.Join(errs...)
		},
	}
}

func newPlanCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <extension>",
		Short: "Print the activation order for an extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := flags.open(false)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			order, err := application.Plan(args[0])
			if err != nil {
				return err
			}
			for i, name := range order {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, name)
			}
			return nil
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var startup bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List extensions with their triggers and state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := flags.open(false)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			var startErr error
			if startup {
				startErr = application.Startup(cmd.Context())
			}
			printStatus(cmd.OutOrStdout(), application.Status())
			return errors.Join(startErr)
		},
	}
	cmd.Flags().BoolVar(&startup, "startup", false, "run startup before reporting")
	return cmd
}

func newInstallCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install [extension]...",
		Short: "Install extensions without activating them",
		Long:  "Install clones the named extensions, or every missing one, and updates the lockfile.",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := flags.open(false)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			if err := application.Install(cmd.Context(), args...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all extensions installed")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lazyrc %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// printStatus writes one row per extension.
func printStatus(w io.Writer, status []app.ExtensionStatus) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tINSTALLED\tTRIGGERS\tDEPENDENCIES\tACTIVATED")
	for _, s := range status {
		activated := "-"
		if !s.ActivatedAt.IsZero() {
			activated = s.ActivatedAt.Format(time.TimeOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			s.Name, s.State, s.Installed, list(s.Triggers), list(s.Dependencies), activated)
	}
	_ = tw.Flush()

	for _, s := range status {
		if s.Error != nil {
			fmt.Fprintf(w, "\n%s: %v\n", s.Name, s.Error)
		}
	}
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
