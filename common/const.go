// Package common holds the IPC surface shared between the wallpick daemon
// and its collaborators (CLI, tray, console window): method names, request
// and response payloads, and transport endpoints.
package common

import (
	"os"
	"path/filepath"
)

// JSON-RPC method names exposed by the daemon.
const (
	MethodStatus          = "wallpick.status"
	MethodRunNow          = "wallpick.runNow"
	MethodExcludeUploader = "wallpick.excludeUploader"
	MethodLogin           = "wallpick.login"
	MethodReload          = "wallpick.reload"
	MethodStop            = "wallpick.stop"
	MethodVersion         = "wallpick.version"
	MethodEvents          = "wallpick.events"
)

// SocketPathEnv overrides the default IPC socket location.
const SocketPathEnv = "WALLPICK_SOCKET_PATH"

// TCPHost is the loopback host used for the TCP fallback listener and the
// collaborator event stream.
const TCPHost = "127.0.0.1"

// DefaultEventPort is the localhost port serving the websocket event stream.
const DefaultEventPort = 9617

// SocketPath returns the unix socket path the daemon listens on.
func SocketPath() string {
	if p := os.Getenv(SocketPathEnv); p != "" {
		return p
	}
	return filepath.Join(os.TempDir(), "wallpick.sock")
}

// PipePath returns the named pipe path used on Windows.
func PipePath() string {
	if p := os.Getenv(SocketPathEnv); p != "" {
		return p
	}
	return `\\.\pipe\wallpick`
}
