package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/wallpick/wallpick/common"
	wpdaemon "github.com/wallpick/wallpick/internal/daemon"
	"github.com/wallpick/wallpick/internal/steamcmd"
)

func once(ctx *cli.Context) error {
	p := mpb.New(mpb.WithWidth(48))
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	var speed atomic.Value
	speed.Store("")
	name := "Downloading"
	bar := p.New(100,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.Percentage(decor.WC{W: 5}),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				return speed.Load().(string)
			}),
		),
	)

	d, err := wpdaemon.New(wpdaemon.Options{
		ConfigPath: ctx.String("config"),
		Version: common.VersionResult{
			Version:   buildArgs.Version,
			Commit:    buildArgs.Commit,
			BuildType: buildArgs.BuildType,
		},
		OnFetchLine: func(line string) {
			pr, ok := steamcmd.ParseProgress(line)
			if !ok {
				return
			}
			if pr.Percent > 0 {
				bar.SetCurrent(int64(pr.Percent))
			}
			if pr.Speed != "" {
				speed.Store(" " + pr.Speed)
			}
		},
	})
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runErr := d.RunOnce(runCtx)
	bar.SetTotal(100, true)
	p.Wait()
	if runErr != nil {
		return runErr
	}
	fmt.Println("wallpaper applied")
	return nil
}
