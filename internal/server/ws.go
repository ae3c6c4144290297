package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"canvas-cli/internal/args"
	"canvas-cli/internal/engine"
	"canvas-cli/internal/model"
)

const writeWait = 10 * time.Second

// wsRequest is one command frame sent by the agent.
type wsRequest struct {
	ID      string    `json:"id"`
	Command string    `json:"command"`
	Args    args.Args `json:"args"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		// Same-origin only; agents connect without an Origin header.
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

// handleWS runs one agent session. Commands are applied in arrival order;
// generation commands run in the background so they never hold the stream.
// Every new document snapshot is pushed as a "state" frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan CommandResponse, 16)
	changed := make(chan struct{}, 1)
	changed <- struct{}{}
	unsubscribe := s.eng.State().Subscribe(func(model.Document) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Closing unblocks the read loop below.
		defer conn.Close()
		defer cancel()
		s.pumpToWS(ctx, conn, out, changed)
	}()

	send := func(resp CommandResponse) {
		select {
		case out <- resp:
		case <-ctx.Done():
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read ended", zap.Error(err))
			}
			break
		}
		var req wsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			send(CommandResponse{Type: "result", Error: "invalid frame: " + err.Error()})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		if cmd, ok := s.eng.Lookup(req.Command); ok && cmd.Mode == engine.ModeDetached {
			wg.Add(1)
			go func(req wsRequest) {
				defer wg.Done()
				resp, _ := s.dispatch(ctx, req.ID, req.Command, req.Args)
				send(resp)
			}(req)
			continue
		}
		resp, _ := s.dispatch(ctx, req.ID, req.Command, req.Args)
		send(resp)
	}
	cancel()
	wg.Wait()
}

func (s *Server) pumpToWS(ctx context.Context, conn *websocket.Conn, out <-chan CommandResponse, changed <-chan struct{}) {
	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			s.log.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case resp := <-out:
			if !write(resp) {
				return
			}
		case <-changed:
			b, err := json.Marshal(s.eng.Snapshot())
			if err != nil {
				s.log.Warn("encode state", zap.Error(err))
				continue
			}
			if !write(CommandResponse{Type: "state", State: b}) {
				return
			}
		}
	}
}
