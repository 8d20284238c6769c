package types

import "encoding/json"

// GameStep is the coarse phase of a quiz round. The server is authoritative;
// clients only ever adopt the value it broadcasts, apart from two documented
// provisional shortcuts (countdown timeout, last-question final).
type GameStep int

const (
	StepLobby GameStep = iota
	StepCountdown
	StepQuestion
	StepAnswerReveal
	StepRanking
	StepFinal
)

func (s GameStep) String() string {
	switch s {
	case StepLobby:
		return "lobby"
	case StepCountdown:
		return "countdown"
	case StepQuestion:
		return "question"
	case StepAnswerReveal:
		return "answer_reveal"
	case StepRanking:
		return "ranking"
	case StepFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Player identity is ID. Score is only ever overwritten wholesale from a
// roster or ranking broadcast, never incremented locally.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AvatarID int    `json:"avatarId"`
	Score    int    `json:"score"`
}

// Question is immutable once received. Options keep server order; the answer
// index refers into that order.
type Question struct {
	English        string   `json:"english"`
	CorrectMeaning string   `json:"correctMeaning"`
	Options        []string `json:"options"`
}

// UnmarshalJSON accepts both the current "english" field and the legacy
// "text" field some servers still send.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw struct {
		English        string   `json:"english"`
		Text           string   `json:"text"`
		CorrectMeaning string   `json:"correctMeaning"`
		Options        []string `json:"options"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.English = raw.English
	if q.English == "" {
		q.English = raw.Text
	}
	q.CorrectMeaning = raw.CorrectMeaning
	q.Options = raw.Options
	return nil
}

// CorrectIndex returns the option index holding the correct meaning, or -1.
func (q Question) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt == q.CorrectMeaning {
			return i
		}
	}
	return -1
}

// LobbyData is immutable for the lifetime of a room; a new room requires a
// new LobbyData.
type LobbyData struct {
	RoomCode           string `json:"roomCode"`
	HostID             string `json:"hostId"`
	QuestionDuration   int    `json:"questionDuration"`
	TotalQuestionCount int    `json:"totalQuestionCount"`
	OptionCount        int    `json:"optionCount"`
	Level              string `json:"level"`
}
