package cmd

import (
	"testing"
)

func TestExecuteVersion(t *testing.T) {
	err := Execute([]string{"wallpick", "version"}, BuildArgs{
		Version:   "1.2.3",
		BuildType: "test",
		Commit:    "abc1234",
		Date:      "2026-01-01",
	})
	if err != nil {
		t.Fatalf("Execute(version) = %v, want nil", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	if err := Execute([]string{"wallpick", "help"}, BuildArgs{}); err != nil {
		t.Fatalf("Execute(help) = %v, want nil", err)
	}
}

func TestTemplatesPresent(t *testing.T) {
	for name, s := range map[string]string{
		"DESCRIPTION":        DESCRIPTION,
		"HELP_TEMPL":         HELP_TEMPL,
		"CMD_HELP_TEMPL":     CMD_HELP_TEMPL,
		"DaemonDescription":  DaemonDescription,
		"OnceDescription":    OnceDescription,
		"StatusDescription":  StatusDescription,
		"NowDescription":     NowDescription,
		"ExcludeDescription": ExcludeDescription,
		"LogDescription":     LogDescription,
		"LoginDescription":   LoginDescription,
	} {
		if s == "" {
			t.Errorf("%s is empty", name)
		}
	}
}
