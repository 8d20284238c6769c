// Package hub is the room registry actor on the loopback server. It owns the
// code→room map; creation, lookup, and removal all serialize through its
// inbox.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/quiz"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/room"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Lobby        types.LobbyData
	PasswordHash []byte
	Engine       *quiz.Engine
	Host         types.Player
	Reply        chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox    chan HubMsg
	log      *zap.Logger
	rooms    map[string]*room.Room
	roomOpts []room.Option
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewHub starts the registry. roomOpts are applied to every room it creates,
// which is how tests compress the game clock.
func NewHub(parent context.Context, log *zap.Logger, roomOpts ...room.Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		log:      log,
		rooms:    make(map[string]*room.Room),
		roomOpts: roomOpts,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Room is a convenience lookup wrapper around GetRoom for handler code.
func (h *Hub) Room(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	select {
	case h.inbox <- GetRoom{Code: code, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	}
	select {
	case r := <-reply:
		return r
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if existing := h.rooms[msg.Lobby.RoomCode]; existing != nil {
					msg.Reply <- existing
					break
				}
				r := room.New(h.ctx, h.log, msg.Lobby, msg.PasswordHash, msg.Engine, msg.Host, h.roomOpts...)
				h.rooms[msg.Lobby.RoomCode] = r
				h.log.Info("room created", zap.String("room", msg.Lobby.RoomCode))
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code))
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for code, r := range h.rooms {
		r.Inbox() <- room.Shutdown{}
		delete(h.rooms, code)
	}
	h.cancel()
}
