package types

import "encoding/json"

// Wire envelopes shared by the websocket layer on both ends. Field names are
// a compatibility contract with existing servers and must not change.

// Server -> Client
// gameStateChanged: step (int), remainingTime (seconds)
// question:         question (payload), index
// questions:        questions (full ordered list)
// questionIndex:    index
// answerResult:     correct, correctIndex, scoreDelta
// rankings:         players
// gameEnded:        players (final standings)
// playersUpdate:    players
// playerJoined:     id, name
// playerLeft:       id
// error:            message
// The numeric fields are required by the contract and serialize even when
// zero: step 0 is the lobby and index 0 is the first question.
type ServerMessage struct {
	Type          string          `json:"type"`
	Step          GameStep        `json:"step"`
	RemainingTime int             `json:"remainingTime"`
	Question      *Question       `json:"question,omitempty"`
	Questions     []Question      `json:"questions,omitempty"`
	Index         int             `json:"index"`
	Correct       *bool           `json:"correct,omitempty"`
	CorrectIndex  int             `json:"correctIndex"`
	ScoreDelta    int             `json:"scoreDelta"`
	Players       []Player        `json:"players,omitempty"`
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Message       string          `json:"message,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// Client -> Server
// join:         roomCode, playerName, avatarId
// leave:        roomCode, playerId
// start:        roomCode
// submitAnswer: roomCode, playerId, optionIndex, elapsedSeconds
type ClientMessage struct {
	Type           string  `json:"type"`
	RoomCode       string  `json:"roomCode,omitempty"`
	PlayerID       string  `json:"playerId,omitempty"`
	PlayerName     string  `json:"playerName,omitempty"`
	AvatarID       int     `json:"avatarId,omitempty"`
	OptionIndex    *int    `json:"optionIndex,omitempty"`
	ElapsedSeconds float64 `json:"elapsedSeconds,omitempty"`
}
