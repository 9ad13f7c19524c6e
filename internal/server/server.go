// Package server exposes the daemon's IPC surface: a JSON-RPC 2.0
// endpoint on a unix socket (named pipe on Windows, TCP fallback) for
// collaborator commands, and a localhost websocket streaming events to
// the tray console.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"

	"github.com/wallpick/wallpick/common"
	"github.com/wallpick/wallpick/pkg/logger"
)

// Daemon is the surface the RPC methods drive.
type Daemon interface {
	Status() common.StatusResult
	RunNow() common.TriggerResult
	ExcludeUploader(ctx context.Context) (common.ExcludeResult, error)
	Login(ctx context.Context, p common.LoginParams) error
	Events(limit int) ([]common.HistoryEvent, error)
	Reload() error
	Stop()
}

// Options configures a Server.
type Options struct {
	Log     logger.Logger
	Daemon  Daemon
	Hub     *EventHub
	Port    int // TCP fallback port; Port+1 serves the event stream
	Version common.VersionResult
}

// Server accepts collaborator connections and serves one jrpc2 session
// per connection.
type Server struct {
	log     logger.Logger
	daemon  Daemon
	hub     *EventHub
	port    int
	version common.VersionResult

	mu       sync.Mutex
	listener net.Listener
	sessions map[*jrpc2.Server]struct{}
}

func NewServer(opts Options) *Server {
	s := &Server{
		log:      opts.Log,
		daemon:   opts.Daemon,
		hub:      opts.Hub,
		port:     opts.Port,
		version:  opts.Version,
		sessions: make(map[*jrpc2.Server]struct{}),
	}
	if s.log == nil {
		s.log = logger.NewNopLogger()
	}
	if s.port == 0 {
		s.port = common.DefaultEventPort - 1
	}
	return s
}

func (s *Server) methods() handler.Map {
	return handler.Map{
		common.MethodStatus:          handler.New(s.status),
		common.MethodRunNow:          handler.New(s.runNow),
		common.MethodExcludeUploader: handler.New(s.excludeUploader),
		common.MethodLogin:           handler.New(s.login),
		common.MethodReload:          handler.New(s.reload),
		common.MethodStop:            handler.New(s.stop),
		common.MethodVersion:         handler.New(s.versionInfo),
		common.MethodEvents:          handler.New(s.events),
	}
}

// Start listens and serves until ctx is cancelled. The event stream
// server runs alongside on its own port.
func (s *Server) Start(ctx context.Context) error {
	l, err := s.createListener()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.log.Info("server: listening on %s", l.Addr())

	if s.hub != nil {
		go s.serveEvents(ctx)
	}
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	methods := s.methods()
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.log.Warning("server: accept: %s", err)
			continue
		}
		go s.serveConn(ctx, methods, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, methods handler.Map, conn net.Conn) {
	defer conn.Close()
	srv := jrpc2.NewServer(methods, nil)
	srv.Start(channel.Line(conn, conn))

	s.mu.Lock()
	s.sessions[srv] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, srv)
		s.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		srv.Stop()
	case <-done(srv):
	}
}

func done(srv *jrpc2.Server) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		srv.Wait()
		close(ch)
	}()
	return ch
}

// Shutdown closes the listener and stops active sessions.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	for srv := range s.sessions {
		srv.Stop()
	}
	cleanupSocket()
}

func (s *Server) status(ctx context.Context) (common.StatusResult, error) {
	return s.daemon.Status(), nil
}

func (s *Server) runNow(ctx context.Context) (common.TriggerResult, error) {
	return s.daemon.RunNow(), nil
}

func (s *Server) excludeUploader(ctx context.Context) (common.ExcludeResult, error) {
	return s.daemon.ExcludeUploader(ctx)
}

func (s *Server) login(ctx context.Context, p common.LoginParams) (common.EmptyResult, error) {
	return common.EmptyResult{}, s.daemon.Login(ctx, p)
}

func (s *Server) reload(ctx context.Context) (common.EmptyResult, error) {
	return common.EmptyResult{}, s.daemon.Reload()
}

func (s *Server) stop(ctx context.Context) (common.EmptyResult, error) {
	// Stop after the response is flushed.
	go s.daemon.Stop()
	return common.EmptyResult{}, nil
}

func (s *Server) versionInfo(ctx context.Context) (common.VersionResult, error) {
	return s.version, nil
}

func (s *Server) events(ctx context.Context) (common.EventsResult, error) {
	hist, err := s.daemon.Events(50)
	if err != nil {
		return common.EventsResult{}, err
	}
	res := common.EventsResult{History: hist}
	if s.hub != nil {
		res.Stream = s.hub.Recent()
	}
	return res, nil
}
