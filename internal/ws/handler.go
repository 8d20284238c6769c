// Package ws accepts game websockets on the loopback server. Each connection
// attaches an outbox to its room; a writer goroutine drains it while the read
// loop translates client frames into room messages.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/hub"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/room"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("roomCode")
		playerID := r.URL.Query().Get("playerId")
		if code == "" || playerID == "" {
			http.Error(w, "missing roomCode or playerId", http.StatusBadRequest)
			return
		}

		rm := h.Room(code)
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan []byte, 16)
		rm.Inbox() <- room.Attach{ConnID: connID, PlayerID: playerID, Outbox: out}
		defer func() { rm.Inbox() <- room.Detach{ConnID: connID} }()

		log.Info("websocket attached",
			zap.String("room", code), zap.String("player", playerID))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for frame := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, frame)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm clientFrame
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","message":"bad json"}`))
				continue
			}
			dispatch(rm, playerID, cm)
		}
	}
}

type clientFrame struct {
	Type           string  `json:"type"`
	RoomCode       string  `json:"roomCode"`
	PlayerID       string  `json:"playerId"`
	OptionIndex    *int    `json:"optionIndex"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// dispatch maps one client frame to a room message. The playerId bound at
// accept time wins over whatever the frame claims.
func dispatch(rm *room.Room, playerID string, cm clientFrame) {
	switch cm.Type {
	case "join":
		// Membership is established over REST; the socket join is a no-op.
	case "leave":
		rm.Inbox() <- room.RemovePlayer{PlayerID: playerID}
	case "start":
		rm.Inbox() <- room.Start{PlayerID: playerID}
	case "submitAnswer":
		if cm.OptionIndex == nil {
			return
		}
		rm.Inbox() <- room.Answer{
			PlayerID:    playerID,
			OptionIndex: *cm.OptionIndex,
			Elapsed:     cm.ElapsedSeconds,
		}
	}
}
