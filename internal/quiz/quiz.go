// Package quiz is the server-side question engine: it builds the question set
// for a game and grades answers. Grading enforces at-most-once scoring per
// (player, question) no matter how many times or over which channel the same
// answer arrives.
//
// The engine is not safe for concurrent use; the owning room goroutine is the
// only caller.
package quiz

import (
	"math/rand"
	"strings"

	"github.com/ahmetabdullahgultekin/trainvoc-arena/pkg/types"
)

const (
	baseScore     = 100
	maxSpeedBonus = 50
)

// Result is the outcome of grading one answer.
type Result struct {
	Correct      bool
	CorrectIndex int
	ScoreDelta   int
}

type answerKey struct {
	playerID string
	index    int
}

type Engine struct {
	questions []types.Question
	duration  int

	answered map[answerKey]struct{}
	scores   map[string]int
}

// NewEngine wraps a prepared question set. duration is the per-question
// answer window in seconds, used for the speed bonus.
func NewEngine(questions []types.Question, duration int) *Engine {
	if duration <= 0 {
		duration = 1
	}
	return &Engine{
		questions: questions,
		duration:  duration,
		answered:  make(map[answerKey]struct{}),
		scores:    make(map[string]int),
	}
}

func (e *Engine) Len() int { return len(e.questions) }

func (e *Engine) Questions() []types.Question {
	out := make([]types.Question, len(e.questions))
	copy(out, e.questions)
	return out
}

func (e *Engine) Question(index int) (types.Question, bool) {
	if index < 0 || index >= len(e.questions) {
		return types.Question{}, false
	}
	return e.questions[index], true
}

// SubmitIndex grades an answer given by option index. The second submission
// for the same (player, question) is rejected with ok=false and does not
// change any score.
func (e *Engine) SubmitIndex(playerID string, index, optionIndex int, elapsed float64) (Result, bool) {
	q, found := e.Question(index)
	if !found {
		return Result{}, false
	}
	correctIndex := q.CorrectIndex()
	return e.grade(playerID, index, correctIndex, optionIndex == correctIndex, elapsed)
}

// SubmitText grades an answer given as meaning text, the legacy REST shape.
// Matching is case-insensitive on the trimmed text.
func (e *Engine) SubmitText(playerID string, index int, answer string, elapsed float64) (Result, bool) {
	q, found := e.Question(index)
	if !found {
		return Result{}, false
	}
	correct := strings.EqualFold(strings.TrimSpace(answer), q.CorrectMeaning)
	return e.grade(playerID, index, q.CorrectIndex(), correct, elapsed)
}

func (e *Engine) grade(playerID string, index, correctIndex int, correct bool, elapsed float64) (Result, bool) {
	key := answerKey{playerID: playerID, index: index}
	if _, dup := e.answered[key]; dup {
		return Result{}, false
	}
	e.answered[key] = struct{}{}

	res := Result{Correct: correct, CorrectIndex: correctIndex}
	if correct {
		res.ScoreDelta = baseScore + e.speedBonus(elapsed)
		e.scores[playerID] += res.ScoreDelta
	}
	return res, true
}

// Answered reports whether the player already has a graded answer for the
// question.
func (e *Engine) Answered(playerID string, index int) bool {
	_, ok := e.answered[answerKey{playerID: playerID, index: index}]
	return ok
}

func (e *Engine) Score(playerID string) int { return e.scores[playerID] }

// ApplyScores returns a copy of players with current scores filled in.
func (e *Engine) ApplyScores(players []types.Player) []types.Player {
	out := make([]types.Player, len(players))
	copy(out, players)
	for i := range out {
		out[i].Score = e.scores[out[i].ID]
	}
	return out
}

func (e *Engine) speedBonus(elapsed float64) int {
	if elapsed < 0 {
		elapsed = 0
	}
	frac := 1 - elapsed/float64(e.duration)
	if frac < 0 {
		frac = 0
	}
	bonus := int(frac*float64(maxSpeedBonus) + 0.5)
	if bonus > maxSpeedBonus {
		bonus = maxSpeedBonus
	}
	return bonus
}

// Generate builds count questions for the level, each with optionCount
// options: the correct meaning plus distractors drawn from other words of the
// same pool. Option order is shuffled per question.
func Generate(rng *rand.Rand, level string, count, optionCount int) []types.Question {
	pool := wordsFor(level)
	if count > len(pool) {
		count = len(pool)
	}
	if optionCount < 2 {
		optionCount = 2
	}
	if optionCount > len(pool) {
		optionCount = len(pool)
	}

	order := rng.Perm(len(pool))
	questions := make([]types.Question, 0, count)
	for _, wi := range order[:count] {
		w := pool[wi]
		options := []string{w.meaning}
		for _, di := range rng.Perm(len(pool)) {
			if len(options) == optionCount {
				break
			}
			if pool[di].meaning == w.meaning {
				continue
			}
			options = append(options, pool[di].meaning)
		}
		rng.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		questions = append(questions, types.Question{
			English:        w.english,
			CorrectMeaning: w.meaning,
			Options:        options,
		})
	}
	return questions
}
