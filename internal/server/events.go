package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/wallpick/wallpick/common"
)

// serveEvents runs the localhost websocket endpoint the tray console
// attaches to. Each attach replays the recent-event ring, then streams
// live events until the peer goes away.
func (s *Server) serveEvents(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", common.TCPHost, s.port+1),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("server: event stream on ws://%s/events", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Warning("server: event stream: %s", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.log.Warning("server: websocket accept: %s", err)
		return
	}
	defer conn.Close(cws.StatusNormalClosure, "")

	ctx := r.Context()
	replay, live, cancel := s.hub.Subscribe()
	defer cancel()

	for _, ev := range replay {
		if err := wsjson.Write(ctx, conn, ev); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-live:
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}
