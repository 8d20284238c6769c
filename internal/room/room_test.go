package room

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/internal/quiz"
	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

var testLobby = types.LobbyData{
	RoomCode:           "ROOM01",
	HostID:             "h1",
	QuestionDuration:   60,
	TotalQuestionCount: 2,
	OptionCount:        4,
	Level:              "A1",
}

var host = types.Player{ID: "h1", Name: "host"}

var gameQuestions = []types.Question{
	{English: "apple", CorrectMeaning: "elma", Options: []string{"süt", "elma", "ekmek", "su"}},
	{English: "book", CorrectMeaning: "kitap", Options: []string{"kitap", "masa", "kapı", "okul"}},
}

func newTestRoom(t *testing.T, opts ...Option) *Room {
	t.Helper()
	engine := quiz.NewEngine(gameQuestions, testLobby.QuestionDuration)
	opts = append([]Option{WithTimeUnit(2 * time.Millisecond)}, opts...)
	r := New(context.Background(), zaptest.NewLogger(t), testLobby, nil, engine, host, opts...)
	t.Cleanup(func() { r.Inbox() <- Shutdown{} })
	return r
}

func attach(t *testing.T, r *Room, connID, playerID string) chan []byte {
	t.Helper()
	out := make(chan []byte, 64)
	r.Inbox() <- Attach{ConnID: connID, PlayerID: playerID, Outbox: out}
	return out
}

// recvType drains the outbox until a frame of the wanted type arrives.
func recvType(t *testing.T, out <-chan []byte, wantType string, within time.Duration) types.ServerMessage {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case frame, ok := <-out:
			if !ok {
				t.Fatalf("outbox closed while waiting for %q", wantType)
			}
			var msg types.ServerMessage
			require.NoError(t, json.Unmarshal(frame, &msg))
			if msg.Type == wantType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", wantType)
		}
	}
}

func getState(t *testing.T, r *Room) StateView {
	t.Helper()
	reply := make(chan StateView, 1)
	r.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
		return StateView{}
	}
}

func addPlayer(t *testing.T, r *Room, p types.Player, password string) error {
	t.Helper()
	reply := make(chan error, 1)
	r.Inbox() <- AddPlayer{Player: p, Password: password, Reply: reply}
	select {
	case err := <-reply:
		return err
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for join reply")
		return nil
	}
}

func TestHostStartRunsCountdownIntoQuestion(t *testing.T) {
	r := newTestRoom(t)
	out := attach(t, r, "c1", "h1")

	r.Inbox() <- Start{PlayerID: "h1"}

	msg := recvType(t, out, "gameStateChanged", time.Second)
	assert.Equal(t, types.StepCountdown, msg.Step)
	assert.Equal(t, 3, msg.RemainingTime)

	q := recvType(t, out, "question", time.Second)
	require.NotNil(t, q.Question)
	assert.Equal(t, "apple", q.Question.English)
	assert.Equal(t, 0, q.Index)

	idx := recvType(t, out, "questionIndex", time.Second)
	assert.Equal(t, 0, idx.Index)

	msg = recvType(t, out, "gameStateChanged", time.Second)
	assert.Equal(t, types.StepQuestion, msg.Step)
	assert.Equal(t, testLobby.QuestionDuration, msg.RemainingTime)
}

func TestNonHostCannotStart(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, addPlayer(t, r, types.Player{ID: "p2", Name: "guest"}, ""))

	r.Inbox() <- Start{PlayerID: "p2"}
	assert.Equal(t, types.StepLobby, getState(t, r).Step)
}

func TestJoinBroadcastsRosterWholesale(t *testing.T) {
	r := newTestRoom(t)
	out := attach(t, r, "c1", "h1")

	require.NoError(t, addPlayer(t, r, types.Player{ID: "p2", Name: "guest"}, ""))

	joined := recvType(t, out, "playerJoined", time.Second)
	assert.Equal(t, "p2", joined.ID)

	roster := recvType(t, out, "playersUpdate", time.Second)
	require.Len(t, roster.Players, 2)

	assert.ErrorIs(t, addPlayer(t, r, types.Player{ID: "p3", Name: "guest"}, ""), ErrDuplicateName)

	r.Inbox() <- Start{PlayerID: "h1"}
	assert.ErrorIs(t, addPlayer(t, r, types.Player{ID: "p4", Name: "late"}, ""), ErrGameStarted)
}

func TestPasswordProtectedJoin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	engine := quiz.NewEngine(gameQuestions, testLobby.QuestionDuration)
	r := New(context.Background(), zaptest.NewLogger(t), testLobby, hash, engine, host,
		WithTimeUnit(2*time.Millisecond))
	t.Cleanup(func() { r.Inbox() <- Shutdown{} })

	guest := types.Player{ID: "p2", Name: "guest"}
	assert.ErrorIs(t, addPlayer(t, r, guest, ""), ErrPasswordNeeded)
	assert.ErrorIs(t, addPlayer(t, r, guest, "wrong"), ErrWrongPassword)
	assert.NoError(t, addPlayer(t, r, guest, "sesame"))
}

func TestDuplicateAnswerAcrossChannelsScoresOnce(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, addPlayer(t, r, types.Player{ID: "p2", Name: "guest"}, ""))
	out := attach(t, r, "c1", "h1")

	r.Inbox() <- Start{PlayerID: "h1"}
	recvType(t, out, "question", time.Second)

	r.Inbox() <- Answer{PlayerID: "h1", OptionIndex: 1, Elapsed: 1.0}
	r.Inbox() <- AnswerText{PlayerID: "h1", Answer: "elma", Elapsed: 1.2}

	result := recvType(t, out, "answerResult", time.Second)
	require.NotNil(t, result.Correct)
	assert.True(t, *result.Correct)

	view := getState(t, r)
	var hostScore int
	for _, p := range view.Players {
		if p.ID == "h1" {
			hostScore = p.Score
		}
	}
	assert.Equal(t, result.ScoreDelta, hostScore, "the duplicate submission must not double-score")
}

func TestAllAnsweredTriggersEarlyReveal(t *testing.T) {
	r := newTestRoom(t)
	require.NoError(t, addPlayer(t, r, types.Player{ID: "p2", Name: "guest"}, ""))
	out := attach(t, r, "c1", "h1")

	r.Inbox() <- Start{PlayerID: "h1"}
	recvType(t, out, "question", time.Second)

	r.Inbox() <- Answer{PlayerID: "h1", OptionIndex: 1, Elapsed: 1.0}
	r.Inbox() <- Answer{PlayerID: "p2", OptionIndex: 0, Elapsed: 2.0}

	msg := recvType(t, out, "gameStateChanged", time.Second)
	for msg.Step != types.StepAnswerReveal {
		msg = recvType(t, out, "gameStateChanged", time.Second)
	}
	rank := recvType(t, out, "rankings", time.Second)
	require.Len(t, rank.Players, 2)
	assert.Equal(t, "h1", rank.Players[0].ID, "rankings are sorted descending by score")
}

func TestHostAdvanceMovesToNextQuestion(t *testing.T) {
	r := newTestRoom(t)
	out := attach(t, r, "c1", "h1")

	r.Inbox() <- Start{PlayerID: "h1"}
	recvType(t, out, "question", time.Second)
	r.Inbox() <- Answer{PlayerID: "h1", OptionIndex: 1, Elapsed: 1.0}

	// Host alone means the early reveal fires immediately.
	msg := recvType(t, out, "gameStateChanged", time.Second)
	for msg.Step != types.StepAnswerReveal {
		msg = recvType(t, out, "gameStateChanged", time.Second)
	}

	r.Inbox() <- Advance{PlayerID: "h1"}

	// The reveal may have already rolled into the ranking screen; either way
	// the next question opens with its own countdown.
	msg = recvType(t, out, "gameStateChanged", time.Second)
	for msg.Step == types.StepRanking {
		msg = recvType(t, out, "gameStateChanged", time.Second)
	}
	assert.Equal(t, types.StepCountdown, msg.Step)

	q := recvType(t, out, "question", time.Second)
	assert.Equal(t, 1, q.Index)
	assert.Equal(t, "book", q.Question.English)
}

func TestLastQuestionEndsInFinalStandings(t *testing.T) {
	r := newTestRoom(t)
	out := attach(t, r, "c1", "h1")

	r.Inbox() <- Start{PlayerID: "h1"}
	for i := 0; i < 2; i++ {
		q := recvType(t, out, "question", time.Second)
		assert.Equal(t, i, q.Index)
		r.Inbox() <- Answer{PlayerID: "h1", OptionIndex: q.Question.CorrectIndex(), Elapsed: 1.0}
		if i == 0 {
			r.Inbox() <- Advance{PlayerID: "h1"}
		}
	}

	ended := recvType(t, out, "gameEnded", 2*time.Second)
	require.Len(t, ended.Players, 1)
	assert.Greater(t, ended.Players[0].Score, 0)

	assert.Equal(t, types.StepFinal, getState(t, r).Step)
}

func TestAnswerOutsideQuestionPhaseIsIgnored(t *testing.T) {
	r := newTestRoom(t)

	r.Inbox() <- Answer{PlayerID: "h1", OptionIndex: 1, Elapsed: 1.0}

	view := getState(t, r)
	assert.Equal(t, types.StepLobby, view.Step)
	for _, p := range view.Players {
		assert.Equal(t, 0, p.Score)
	}
}

func TestStrangerAnswerIsIgnored(t *testing.T) {
	r := newTestRoom(t)
	out := attach(t, r, "c1", "h1")

	r.Inbox() <- Start{PlayerID: "h1"}
	recvType(t, out, "question", time.Second)

	r.Inbox() <- AnswerText{PlayerID: "ghost", Answer: "elma", Elapsed: 1.0}

	view := getState(t, r)
	for _, p := range view.Players {
		assert.Equal(t, 0, p.Score)
	}
}
