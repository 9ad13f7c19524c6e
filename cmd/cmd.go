// Package cmd implements the wallpick command line interface: the daemon
// runner plus the collaborator commands that talk to it over the local
// IPC socket.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
)

// BuildArgs carries build-time metadata injected by the linker.
type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var buildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	buildArgs = bArgs
	app := cli.App{
		Name:                  "wallpick",
		HelpName:              "wallpick",
		Usage:                 "Automatic Steam Workshop wallpaper rotation.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "wallpick <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          usageErrorCallback,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "run the wallpaper rotation daemon",
				Action:             daemon,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        DaemonDescription,
				Flags:              configFlags,
			},
			{
				Name:               "once",
				Aliases:            []string{"o"},
				Usage:              "run a single rotation cycle and exit",
				Action:             once,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        OnceDescription,
				Flags:              configFlags,
			},
			{
				Name:               "status",
				Aliases:            []string{"s"},
				Usage:              "show the daemon's cycle status",
				Action:             status,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StatusDescription,
			},
			{
				Name:               "now",
				Aliases:            []string{"n"},
				Usage:              "trigger a rotation cycle immediately",
				Action:             now,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        NowDescription,
			},
			{
				Name:               "exclude",
				Aliases:            []string{"x"},
				Usage:              "exclude the current wallpaper's uploader and rotate",
				Action:             exclude,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ExcludeDescription,
			},
			{
				Name:               "login",
				Usage:              "refresh the cached steam session",
				Action:             login,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        LoginDescription,
				Flags:              loginFlags,
			},
			{
				Name:               "log",
				Aliases:            []string{"l"},
				Usage:              "show the daemon's recent download and apply events",
				Action:             events,
				OnUsageError:       usageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        LogDescription,
			},
			{
				Name:   "reload",
				Usage:  "reload the daemon's config file",
				Action: reload,
			},
			{
				Name:   "stop",
				Usage:  "stop the daemon",
				Action: stop,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints the installed version of wallpick",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action: func(*cli.Context) error {
					fmt.Printf(
						"wallpick %s-%s (%s)\ncommit: %s\nbuilt: %s\n",
						bArgs.Version, bArgs.BuildType, runtime.Version(),
						bArgs.Commit, bArgs.Date,
					)
					return nil
				},
			},
		},
		Action: status,
	}
	return app.Run(args)
}

var configFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "path to the config file",
	},
}

var loginFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "username, u",
		Usage: "steam account name",
	},
	cli.StringFlag{
		Name:  "guard, g",
		Usage: "steam guard code",
	},
}
