package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/wallpick/wallpick/common"
)

func status(ctx *cli.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var res common.StatusResult
	if err := c.call(common.MethodStatus, nil, &res); err != nil {
		return err
	}
	fmt.Printf("phase:            %s\n", res.Phase)
	if res.CurrentItem != 0 {
		fmt.Printf("current item:     %d\n", res.CurrentItem)
	}
	if res.LastApplied != 0 {
		fmt.Printf("last applied:     %d\n", res.LastApplied)
		for _, dir := range res.LastAppliedDirs {
			fmt.Printf("                  %s\n", dir)
		}
	}
	if !res.LastRun.IsZero() {
		fmt.Printf("last run:         %s\n", res.LastRun.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("completed cycles: %d\n", res.CompletedCycles)
	if res.PendingTrigger {
		fmt.Println("pending trigger:  yes")
	}
	if res.LastError != "" {
		fmt.Printf("last error:       %s\n", res.LastError)
	}
	return nil
}

func now(ctx *cli.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var res common.TriggerResult
	if err := c.call(common.MethodRunNow, nil, &res); err != nil {
		return err
	}
	switch {
	case res.Coalesced:
		fmt.Println("cycle already running, re-run queued")
	case res.Accepted:
		fmt.Println("cycle started")
	default:
		fmt.Println("trigger rejected, daemon is shutting down")
	}
	return nil
}

func exclude(ctx *cli.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var res common.ExcludeResult
	if err := c.call(common.MethodExcludeUploader, nil, &res); err != nil {
		return err
	}
	fmt.Printf("excluded uploader %s, rotating\n", res.Creator)
	return nil
}

func login(ctx *cli.Context) error {
	username := ctx.String("username")
	if username == "" {
		return printErrWithCmdHelp(ctx, fmt.Errorf("username is required"))
	}
	fmt.Printf("password for %s (input is echoed): ", username)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password = strings.TrimRight(password, "\r\n")

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var res common.EmptyResult
	err = c.call(common.MethodLogin, common.LoginParams{
		Username:  username,
		Password:  password,
		GuardCode: ctx.String("guard"),
	}, &res)
	if err != nil {
		return err
	}
	fmt.Println("login ok, session cached")
	return nil
}

func events(ctx *cli.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var res common.EventsResult
	if err := c.call(common.MethodEvents, nil, &res); err != nil {
		return err
	}
	if len(res.History) == 0 && len(res.Stream) == 0 {
		fmt.Println("no events recorded yet")
		return nil
	}
	for _, ev := range res.History {
		line := fmt.Sprintf("%s  %-8s", ev.At.Local().Format("2006-01-02 15:04:05"), ev.Kind)
		if ev.ItemID != 0 {
			line += fmt.Sprintf("  item %d", ev.ItemID)
		}
		if ev.Detail != "" {
			line += "  " + ev.Detail
		}
		fmt.Println(line)
	}
	return nil
}

func reload(ctx *cli.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var res common.EmptyResult
	if err := c.call(common.MethodReload, nil, &res); err != nil {
		return err
	}
	fmt.Println("config reloaded")
	return nil
}

func stop(ctx *cli.Context) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var res common.EmptyResult
	if err := c.call(common.MethodStop, nil, &res); err != nil {
		return err
	}
	fmt.Println("daemon stopping")
	return nil
}
