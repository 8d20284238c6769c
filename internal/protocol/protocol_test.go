package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

func TestDecodeStateChanged(t *testing.T) {
	ev := Decode([]byte(`{"type":"gameStateChanged","step":2,"remainingTime":10}`))
	sc, ok := ev.(EventStateChanged)
	require.True(t, ok, "expected EventStateChanged, got %T", ev)
	assert.Equal(t, types.StepQuestion, sc.Step)
	assert.Equal(t, 10, sc.RemainingTime)
}

func TestDecodeQuestionLegacyTextField(t *testing.T) {
	ev := Decode([]byte(`{"type":"question","index":1,"question":{"text":"apple","correctMeaning":"elma","options":["elma","armut"]}}`))
	q, ok := ev.(EventQuestion)
	require.True(t, ok)
	assert.Equal(t, 1, q.Index)
	assert.Equal(t, "apple", q.Question.English, "english should fall back to text")
	assert.Equal(t, 0, q.Question.CorrectIndex())
}

func TestDecodeQuestionWithoutPayload(t *testing.T) {
	ev := Decode([]byte(`{"type":"question","index":0}`))
	_, ok := ev.(EventError)
	assert.True(t, ok, "question frame without payload must degrade to error, got %T", ev)
}

func TestDecodeAnswerResult(t *testing.T) {
	ev := Decode([]byte(`{"type":"answerResult","correct":true,"correctIndex":2,"scoreDelta":130}`))
	ar, ok := ev.(EventAnswerResult)
	require.True(t, ok)
	assert.True(t, ar.Correct)
	assert.Equal(t, 2, ar.CorrectIndex)
	assert.Equal(t, 130, ar.ScoreDelta)
}

func TestDecodeRosterEvents(t *testing.T) {
	for _, typ := range []string{"playersUpdate", "rankings", "gameEnded"} {
		ev := Decode([]byte(`{"type":"` + typ + `","players":[{"id":"p1","name":"ayşe","avatarId":3,"score":200}]}`))
		var players []types.Player
		switch e := ev.(type) {
		case EventPlayersUpdate:
			players = e.Players
		case EventRankings:
			players = e.Players
		case EventGameEnded:
			players = e.Players
		default:
			t.Fatalf("%s: unexpected event %T", typ, ev)
		}
		require.Len(t, players, 1)
		assert.Equal(t, "p1", players[0].ID)
		assert.Equal(t, 200, players[0].Score)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	ev := Decode([]byte(`{nope`))
	_, ok := ev.(EventError)
	assert.True(t, ok, "malformed frames must decode to EventError, got %T", ev)
}

func TestDecodeUnknownTypeIsGeneric(t *testing.T) {
	ev := Decode([]byte(`{"type":"chat","message":"hi"}`))
	g, ok := ev.(EventGeneric)
	require.True(t, ok)
	assert.Equal(t, "chat", g.Type)
	assert.NotEmpty(t, g.Raw)
}

// Outbound field names are a server compatibility contract; assert the exact
// JSON keys, not just round-trip equality.
func TestEncodeSubmitAnswerFieldNames(t *testing.T) {
	data, err := Encode(SubmitAnswer{RoomCode: "ABCD12", PlayerID: "p1", OptionIndex: 0, ElapsedSeconds: 2.5})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "submitAnswer", m["type"])
	assert.Equal(t, "ABCD12", m["roomCode"])
	assert.Equal(t, "p1", m["playerId"])
	assert.Equal(t, float64(0), m["optionIndex"], "optionIndex 0 must be serialized, not omitted")
	assert.Equal(t, 2.5, m["elapsedSeconds"])
}

func TestEncodeJoin(t *testing.T) {
	data, err := Encode(Join{RoomCode: "ABCD12", PlayerName: "mehmet", AvatarID: 4})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "join", m["type"])
	assert.Equal(t, "mehmet", m["playerName"])
	assert.Equal(t, float64(4), m["avatarId"])
}
