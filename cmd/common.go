package cmd

import (
	"fmt"

	"github.com/urfave/cli"
)

func help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		cli.ShowAppHelpAndExit(ctx, 0)
		return nil
	}
	err := cli.ShowCommandHelp(ctx, arg)
	if err != nil {
		return printErrWithHelp(ctx, err)
	}
	return nil
}

func printErrWithCmdHelp(ctx *cli.Context, err error) error {
	fmt.Printf("%s: %s\n\n", ctx.App.HelpName, err.Error())
	return cli.ShowCommandHelp(ctx, ctx.Command.Name)
}

func printErrWithHelp(ctx *cli.Context, err error) error {
	fmt.Printf("%s: %s\n\n", ctx.App.HelpName, err.Error())
	cli.ShowAppHelpAndExit(ctx, 1)
	return nil
}

func usageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return printErrWithCmdHelp(ctx, err)
	}
	return printErrWithHelp(ctx, err)
}
