//go:build windows

package server

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/wallpick/wallpick/common"
)

// pipeSecurityDescriptor restricts pipe access to SYSTEM, built-in
// Administrators, and the creator owner.
const pipeSecurityDescriptor = "D:(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;CO)"

// createListener creates the named pipe listener, falling back to a
// loopback TCP listener when the pipe cannot be created.
func (s *Server) createListener() (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
	}
	l, err := winio.ListenPipe(common.PipePath(), cfg)
	if err != nil {
		s.log.Warning("server: named pipe failed (%s), falling back to tcp", err)
		tcpListener, tcpErr := net.Listen("tcp", fmt.Sprintf("%s:%d", common.TCPHost, s.port))
		if tcpErr != nil {
			return nil, fmt.Errorf("listening: %w", tcpErr)
		}
		return tcpListener, nil
	}
	return l, nil
}

func cleanupSocket() {
	// Named pipes disappear with their last handle.
}
