// Package protocol converts raw websocket frames to and from the typed
// event/command sets the session layer works with. Each inbound frame yields
// exactly one Event; malformed or unknown frames degrade to EventError or
// EventGeneric and never abort the read loop.
package protocol

import (
	"encoding/json"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

// Event is the closed set of inbound events.
type Event interface{ isEvent() }

type EventStateChanged struct {
	Step          types.GameStep
	RemainingTime int
}

type EventQuestion struct {
	Question types.Question
	Index    int
}

type EventQuestions struct {
	Questions []types.Question
}

type EventQuestionIndex struct {
	Index int
}

type EventAnswerResult struct {
	Correct      bool
	CorrectIndex int
	ScoreDelta   int
}

type EventRankings struct {
	Players []types.Player
}

type EventGameEnded struct {
	Players []types.Player
}

type EventPlayersUpdate struct {
	Players []types.Player
}

type EventPlayerJoined struct {
	ID   string
	Name string
}

type EventPlayerLeft struct {
	ID string
}

// EventGeneric carries frames with an unrecognized but well-formed type.
type EventGeneric struct {
	Type string
	Raw  json.RawMessage
}

// EventError covers both server-sent error frames and locally unparseable
// input.
type EventError struct {
	Message string
}

func (EventStateChanged) isEvent()  {}
func (EventQuestion) isEvent()      {}
func (EventQuestions) isEvent()     {}
func (EventQuestionIndex) isEvent() {}
func (EventAnswerResult) isEvent()  {}
func (EventRankings) isEvent()      {}
func (EventGameEnded) isEvent()     {}
func (EventPlayersUpdate) isEvent() {}
func (EventPlayerJoined) isEvent()  {}
func (EventPlayerLeft) isEvent()    {}
func (EventGeneric) isEvent()       {}
func (EventError) isEvent()         {}

// Decode maps one frame to one event. It never returns an error: the session
// must outlive any garbage the transport hands it.
func Decode(data []byte) Event {
	var msg types.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return EventError{Message: "malformed frame: " + err.Error()}
	}

	switch msg.Type {
	case "gameStateChanged":
		return EventStateChanged{Step: msg.Step, RemainingTime: msg.RemainingTime}
	case "question":
		if msg.Question == nil {
			return EventError{Message: "question frame without payload"}
		}
		return EventQuestion{Question: *msg.Question, Index: msg.Index}
	case "questions":
		return EventQuestions{Questions: msg.Questions}
	case "questionIndex":
		return EventQuestionIndex{Index: msg.Index}
	case "answerResult":
		correct := msg.Correct != nil && *msg.Correct
		return EventAnswerResult{Correct: correct, CorrectIndex: msg.CorrectIndex, ScoreDelta: msg.ScoreDelta}
	case "rankings":
		return EventRankings{Players: msg.Players}
	case "gameEnded":
		return EventGameEnded{Players: msg.Players}
	case "playersUpdate":
		return EventPlayersUpdate{Players: msg.Players}
	case "playerJoined":
		return EventPlayerJoined{ID: msg.ID, Name: msg.Name}
	case "playerLeft":
		return EventPlayerLeft{ID: msg.ID}
	case "error":
		return EventError{Message: msg.Message}
	default:
		return EventGeneric{Type: msg.Type, Raw: json.RawMessage(data)}
	}
}

// Command is the closed set of outbound commands.
type Command interface{ isCommand() }

type Join struct {
	RoomCode   string
	PlayerName string
	AvatarID   int
}

type Leave struct {
	RoomCode string
	PlayerID string
}

type Start struct {
	RoomCode string
}

type SubmitAnswer struct {
	RoomCode       string
	PlayerID       string
	OptionIndex    int
	ElapsedSeconds float64
}

func (Join) isCommand()         {}
func (Leave) isCommand()        {}
func (Start) isCommand()        {}
func (SubmitAnswer) isCommand() {}

// Encode serializes a command into the wire shape the server expects.
func Encode(cmd Command) ([]byte, error) {
	var msg types.ClientMessage
	switch c := cmd.(type) {
	case Join:
		msg = types.ClientMessage{Type: "join", RoomCode: c.RoomCode, PlayerName: c.PlayerName, AvatarID: c.AvatarID}
	case Leave:
		msg = types.ClientMessage{Type: "leave", RoomCode: c.RoomCode, PlayerID: c.PlayerID}
	case Start:
		msg = types.ClientMessage{Type: "start", RoomCode: c.RoomCode}
	case SubmitAnswer:
		idx := c.OptionIndex
		msg = types.ClientMessage{
			Type:           "submitAnswer",
			RoomCode:       c.RoomCode,
			PlayerID:       c.PlayerID,
			OptionIndex:    &idx,
			ElapsedSeconds: c.ElapsedSeconds,
		}
	}
	return json.Marshal(msg)
}
