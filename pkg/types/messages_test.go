package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMessageEmitsZeroValuedNumericFields(t *testing.T) {
	data, err := json.Marshal(ServerMessage{Type: "gameStateChanged", Step: StepLobby})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "step", "step 0 is the lobby, not an absent field")
	assert.Contains(t, fields, "remainingTime")
	assert.Contains(t, fields, "index", "index 0 is the first question")
	assert.Contains(t, fields, "correctIndex")
	assert.Contains(t, fields, "scoreDelta")
}

func TestServerMessageQuestionPayloadStaysOptional(t *testing.T) {
	data, err := json.Marshal(ServerMessage{Type: "playerLeft", ID: "p1"})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "question")
	assert.NotContains(t, fields, "players")
	assert.NotContains(t, fields, "correct")
}
