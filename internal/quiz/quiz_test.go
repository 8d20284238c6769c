package quiz

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

var fixedQuestions = []types.Question{
	{English: "apple", CorrectMeaning: "elma", Options: []string{"süt", "elma", "ekmek", "su"}},
	{English: "book", CorrectMeaning: "kitap", Options: []string{"kitap", "masa", "kapı", "okul"}},
}

func TestGradeByIndex(t *testing.T) {
	e := NewEngine(fixedQuestions, 10)

	res, ok := e.SubmitIndex("p1", 0, 1, 2.0)
	require.True(t, ok)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, res.CorrectIndex)
	assert.Greater(t, res.ScoreDelta, baseScore, "fast correct answer earns a speed bonus")
	assert.Equal(t, res.ScoreDelta, e.Score("p1"))
}

func TestWrongAnswerScoresNothing(t *testing.T) {
	e := NewEngine(fixedQuestions, 10)

	res, ok := e.SubmitIndex("p1", 0, 3, 1.0)
	require.True(t, ok)
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.ScoreDelta)
	assert.Equal(t, 0, e.Score("p1"))
}

func TestSecondSubmissionIsRejected(t *testing.T) {
	e := NewEngine(fixedQuestions, 10)

	_, ok := e.SubmitIndex("p1", 0, 1, 2.0)
	require.True(t, ok)
	first := e.Score("p1")

	// The same answer arriving over the other channel must change nothing.
	_, ok = e.SubmitText("p1", 0, "elma", 2.5)
	assert.False(t, ok)
	assert.Equal(t, first, e.Score("p1"))

	// A different player is unaffected.
	_, ok = e.SubmitText("p2", 0, "elma", 2.5)
	assert.True(t, ok)
}

func TestTextMatchingIsCaseInsensitive(t *testing.T) {
	e := NewEngine(fixedQuestions, 10)

	res, ok := e.SubmitText("p1", 0, "  ELMA ", 3.0)
	require.True(t, ok)
	assert.True(t, res.Correct)
}

func TestSpeedBonusBounds(t *testing.T) {
	e := NewEngine(fixedQuestions, 10)

	assert.Equal(t, maxSpeedBonus, e.speedBonus(0))
	assert.Equal(t, 0, e.speedBonus(10))
	assert.Equal(t, 0, e.speedBonus(25), "overtime answers never earn a negative bonus")
}

func TestSubmitOutOfRangeIndex(t *testing.T) {
	e := NewEngine(fixedQuestions, 10)

	_, ok := e.SubmitIndex("p1", 7, 0, 1.0)
	assert.False(t, ok)
}

func TestApplyScores(t *testing.T) {
	e := NewEngine(fixedQuestions, 10)
	e.SubmitIndex("p2", 0, 1, 0)

	players := []types.Player{{ID: "p1", Name: "a"}, {ID: "p2", Name: "b"}}
	out := e.ApplyScores(players)
	assert.Equal(t, 0, out[0].Score)
	assert.Equal(t, e.Score("p2"), out[1].Score)
	assert.Equal(t, 0, players[1].Score, "input slice is not mutated")
}

func TestGenerateShapesQuestions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	questions := Generate(rng, "B1", 5, 4)
	require.Len(t, questions, 5)

	seen := map[string]bool{}
	for _, q := range questions {
		require.Len(t, q.Options, 4)
		assert.GreaterOrEqual(t, q.CorrectIndex(), 0, "correct meaning is always among the options")
		assert.False(t, seen[q.English], "no repeated headwords in one game")
		seen[q.English] = true
		for i, opt := range q.Options {
			for j := i + 1; j < len(q.Options); j++ {
				assert.NotEqual(t, opt, q.Options[j], "options are distinct")
			}
		}
	}
}

func TestGenerateUnknownLevelFallsBackToFullBank(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	questions := Generate(rng, "C9", 10, 4)
	assert.Len(t, questions, 10)
}
