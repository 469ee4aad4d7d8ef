package dashboard

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/requirements"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "start", "message", "confirm" or "reset"
	SessionID string `json:"session_id"` // empty starts a new session
	Content   string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string                 `json:"type"` // "response" or "error"
	SessionID string                 `json:"session_id"`
	Kind      requirements.ReplyKind `json:"kind,omitempty"`
	Content   string                 `json:"content"`
	HTML      string                 `json:"html,omitempty"`
	State     requirements.State     `json:"state,omitempty"`
	Ready     bool                   `json:"ready,omitempty"`
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.sendError(conn, "", "invalid message format")
			continue
		}

		ctx := r.Context()
		switch req.Type {
		case "start":
			d.handleStart(ctx, conn)
		case "message":
			d.handleMessage(ctx, conn, req)
		case "confirm":
			d.handleConfirm(ctx, conn, req)
		case "reset":
			d.handleReset(ctx, conn, req)
		default:
			d.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (d *Dashboard) handleStart(ctx context.Context, conn *websocket.Conn) {
	res, err := d.engine.Start(ctx, "dashboard")
	if err != nil {
		d.sendError(conn, "", "failed to start session: "+err.Error())
		return
	}
	d.sendResult(conn, res)
}

func (d *Dashboard) handleMessage(ctx context.Context, conn *websocket.Conn, req chatRequest) {
	sessionID := req.SessionID

	// Create a new session if needed.
	if sessionID == "" {
		if req.Content == "" {
			d.sendError(conn, "", "content is required")
			return
		}
		res, err := d.engine.Start(ctx, "dashboard")
		if err != nil {
			d.sendError(conn, "", "failed to start session: "+err.Error())
			return
		}
		sessionID = res.SessionID
	}

	res, err := d.engine.HandleTurn(ctx, sessionID, requirements.TurnInput{Content: req.Content})
	if err != nil {
		d.sendError(conn, sessionID, "processing failed: "+err.Error())
		return
	}
	d.sendResult(conn, res)
}

func (d *Dashboard) handleConfirm(ctx context.Context, conn *websocket.Conn, req chatRequest) {
	if req.SessionID == "" {
		d.sendError(conn, "", "session_id is required")
		return
	}
	res, err := d.engine.HandleTurn(ctx, req.SessionID, requirements.TurnInput{Content: req.Content, Confirm: true})
	if err != nil {
		d.sendError(conn, req.SessionID, "confirmation failed: "+err.Error())
		return
	}
	d.sendResult(conn, res)
}

func (d *Dashboard) handleReset(ctx context.Context, conn *websocket.Conn, req chatRequest) {
	if req.SessionID == "" {
		d.sendError(conn, "", "session_id is required")
		return
	}
	res, err := d.engine.Reset(ctx, req.SessionID)
	if err != nil {
		d.sendError(conn, req.SessionID, "reset failed: "+err.Error())
		return
	}
	d.sendResult(conn, res)
}

func (d *Dashboard) sendResult(conn *websocket.Conn, res *requirements.TurnResult) {
	d.sendResponse(conn, chatResponse{
		Type:      "response",
		SessionID: res.SessionID,
		Kind:      res.Kind,
		Content:   res.Reply,
		HTML:      d.render(res.Reply),
		State:     res.State,
		Ready:     res.Ready,
	})
}

func (d *Dashboard) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		d.logger.Warn("websocket write failed", zap.Error(err))
	}
}

func (d *Dashboard) sendError(conn *websocket.Conn, sessionID, message string) {
	resp := chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		d.logger.Warn("websocket write failed", zap.Error(err))
	}
}
