// Package main is the entry point for lazyrc.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/lazyrc/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config    string
	manifest  string
	logLevel  string
	noInstall bool
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "lazyrc",
		Short: "Lazy extension activation for editor configurations",
		Long: `lazyrc loads an extension manifest, runs eager extensions at startup and
activates the rest on demand when a command, key sequence, filetype or
lifecycle event that names them is fired.

Triggers are written as cmd:Name, key:mode:keys, ft:pattern or event:Name.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "settings file (default ~/.config/lazyrc/lazyrc.toml)")
	pf.StringVarP(&flags.manifest, "manifest", "m", "", "manifest file, overrides manifest.path")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&flags.noInstall, "no-install", false, "treat every extension as installed")

	root.AddCommand(
		newRunCmd(flags),
		newFireCmd(flags),
		newPlanCmd(flags),
		newStatusCmd(flags),
		newInstallCmd(flags),
		newVersionCmd(),
	)
	return root
}

// open builds the application for one command invocation.
func (f *globalFlags) open(watch bool) (*app.Application, error) {
	return app.New(app.Options{
		ConfigPath:   f.config,
		ManifestPath: f.manifest,
		LogLevel:     f.logLevel,
		NoInstall:    f.noInstall,
		NoWatch:      !watch,
	})
}
