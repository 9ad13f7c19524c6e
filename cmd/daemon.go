package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/wallpick/wallpick/common"
	wpdaemon "github.com/wallpick/wallpick/internal/daemon"
)

func daemon(ctx *cli.Context) error {
	d, err := wpdaemon.New(wpdaemon.Options{
		ConfigPath: ctx.String("config"),
		Version: common.VersionResult{
			Version:   buildArgs.Version,
			Commit:    buildArgs.Commit,
			BuildType: buildArgs.BuildType,
		},
	})
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return d.Run(runCtx)
}
