// Command remux converts downloaded DASH mp4, WebM and TTML files, and can
// serve the same conversions over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ugparu/remux/utils/logger"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var level string
	root := &cobra.Command{
		Use:           "remux",
		Short:         "Remux DASH mp4, WebM and TTML downloads",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "serve" {
				// the service takes its level from the config
				return nil
			}
			lvl, err := logrus.ParseLevel(level)
			if err != nil {
				return err
			}
			logger.Init(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", "warning", "log level: trace, debug, info, warning, error")
	root.AddCommand(
		newMP4Cmd(),
		newM4ACmd(),
		newFMP4Cmd(),
		newWebMCmd(),
		newOggCmd(),
		newSRTCmd(),
		newProbeCmd(),
		newServeCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
