package httpx

import (
	"context"
	"net/http"

	"github.com/alvinkenyagah/hope-connect-server/internal/ws"
)

// handleRealtime upgrades to a websocket. Authentication happens inside the connection on join,
// so the upgrade itself is open to any allowed origin.
func (r *Router) handleRealtime(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.wsBuffer, r.wsMax, r.logger)
	session := ws.NewSession(r.hub, client, r.svc.Auth, r.svc.Chat, r.logger)
	go func() {
		defer session.Close()
		client.Run(r.rtCtx, r.boundedHandle(session.Handle))
	}()
}

// boundedHandle gives every inbound event its own deadline so a slow store call cannot stall
// the connection's read loop indefinitely.
func (r *Router) boundedHandle(handle func(context.Context, []byte)) func(context.Context, []byte) {
	if r.dbTimeout <= 0 {
		return handle
	}
	return func(ctx context.Context, raw []byte) {
		ctx, cancel := context.WithTimeout(ctx, r.dbTimeout)
		defer cancel()
		handle(ctx, raw)
	}
}
