package cmd

const DESCRIPTION = `
Wallpick keeps your wallpaper fresh. It periodically picks a new
item from the Steam Workshop that matches your filters, downloads
it through steamcmd, mirrors it into the wallpaper engine's
content directory and tells the engine to display it.
`

const (
	DaemonDescription = `The daemon command starts the rotation daemon. It runs
cycles on the configured schedule and serves the local
IPC socket used by the other commands and the tray.

Example:
        wallpick daemon

`
	OnceDescription = `The once command runs a single rotation cycle in the
foreground with a progress bar, then exits. The daemon
does not need to be running.

Example:
        wallpick once

`
	StatusDescription = `The status command prints the daemon's current phase,
the last applied wallpaper and the last error, if any.

Example:
        wallpick status

`
	NowDescription = `The now command asks the running daemon to start a
rotation cycle immediately. If a cycle is already in
flight the request is folded into one pending re-run.

Example:
        wallpick now

`
	ExcludeDescription = `The exclude command bans the uploader of the currently
applied wallpaper from future selection and triggers a
fresh cycle.

Example:
        wallpick exclude

`
	LogDescription = `The log command prints the daemon's recent audit trail:
downloads, applies, removals and errors, newest first.

Example:
        wallpick log

`
	LoginDescription = `The login command refreshes the cached steam session
used by steamcmd. The password is read from the
terminal and sent to the daemon over the local socket
only.

Example:
        wallpick login -u myaccount

`
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`
