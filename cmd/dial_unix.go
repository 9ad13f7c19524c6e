//go:build !windows

package cmd

import (
	"net"
	"strconv"

	"github.com/wallpick/wallpick/common"
)

// dialDaemon connects to the daemon's unix socket, falling back to the
// loopback TCP port the daemon uses when socket creation failed.
func dialDaemon() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", common.SocketPath(), dialTimeout)
	if err == nil {
		return conn, nil
	}
	addr := net.JoinHostPort(common.TCPHost, strconv.Itoa(common.DefaultEventPort-1))
	if tcpConn, tcpErr := net.DialTimeout("tcp", addr, dialTimeout); tcpErr == nil {
		return tcpConn, nil
	}
	return nil, err
}
