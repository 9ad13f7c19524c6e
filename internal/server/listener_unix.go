//go:build !windows

package server

import (
	"fmt"
	"net"
	"os"

	"github.com/wallpick/wallpick/common"
)

// createListener creates the unix socket listener, falling back to a
// loopback TCP listener when the socket cannot be created. The socket file
// is chmodded so only the owning user can connect.
func (s *Server) createListener() (net.Listener, error) {
	socketPath := common.SocketPath()
	_ = os.Remove(socketPath)
	l, err := net.ListenUnix("unix", &net.UnixAddr{
		Name: socketPath,
		Net:  "unix",
	})
	if err != nil {
		s.log.Warning("server: unix socket failed (%s), falling back to tcp", err)
		tcpListener, tcpErr := net.Listen("tcp", fmt.Sprintf("%s:%d", common.TCPHost, s.port))
		if tcpErr != nil {
			return nil, fmt.Errorf("listening: %w", tcpErr)
		}
		return tcpListener, nil
	}
	_ = os.Chmod(socketPath, 0o600)
	return l, nil
}

func cleanupSocket() {
	_ = os.Remove(common.SocketPath())
}
