//go:build windows

package cmd

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/wallpick/wallpick/common"
)

// dialDaemon connects to the daemon's named pipe, falling back to the
// loopback TCP port the daemon uses when pipe creation failed.
func dialDaemon() (net.Conn, error) {
	timeout := dialTimeout
	conn, err := winio.DialPipe(common.PipePath(), &timeout)
	if err == nil {
		return conn, nil
	}
	addr := fmt.Sprintf("%s:%d", common.TCPHost, common.DefaultEventPort-1)
	if tcpConn, tcpErr := net.DialTimeout("tcp", addr, dialTimeout); tcpErr == nil {
		return tcpConn, nil
	}
	return nil, err
}
