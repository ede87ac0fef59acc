package trivia

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Layr-Labs/flow-trivia-go/pkg/cadence"
)

var (
	// ErrInvalidQuestion wraps every question form validation failure.
	ErrInvalidQuestion = errors.New("invalid question")

	ErrQuestionNotFound = errors.New("question not found")
	ErrAlreadyAnswered  = errors.New("question already answered")
	ErrInvalidOption    = errors.New("invalid option")
)

const (
	Category_General       = "General"
	Category_Sports        = "Sports"
	Category_History       = "History"
	Category_Science       = "Science"
	Category_Entertainment = "Entertainment"
)

// Categories lists the categories offered by the admin form.
var Categories = []string{
	Category_General,
	Category_Sports,
	Category_History,
	Category_Science,
	Category_Entertainment,
}

const (
	MinOptions    = 2
	MinDifficulty = 1
	MaxDifficulty = 5

	MessageCorrect = "Correct! 🎉"
	MessageWrong   = "Wrong answer 😢"

	MessageAlreadyAnswered = "You've already answered this question!"
	MessageQuestionAdded   = "Question added successfully!"
)

type QuestionFormData struct {
	Text               string   `json:"text" yaml:"text"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correctOptionIndex"`
	Category           string   `json:"category" yaml:"category"`
	Difficulty         int      `json:"difficulty" yaml:"difficulty"`
}

type Question struct {
	ID uint64 `json:"id"`
	QuestionFormData
}

type PlayerStats struct {
	Address        string `json:"address"`
	CorrectAnswers uint64 `json:"correctAnswers"`
	TotalAnswers   uint64 `json:"totalAnswers"`
}

// PlayerData is everything the game screen shows about one player.
type PlayerData struct {
	// Stats is nil for a player who has never answered.
	Stats    *PlayerStats
	Answered map[uint64]bool
}

type AnswerOutcome struct {
	TxID      string
	IsCorrect bool
	Message   string
	Stats     *PlayerStats
}

type AddQuestionResult struct {
	TxID     string
	RecordID string
}

// IsKnownCategory reports whether c is one of Categories.
func IsKnownCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestion, fmt.Sprintf(format, args...))
}

// Normalize trims text and options and fills defaults for category and
// difficulty. It does not validate.
func (f QuestionFormData) Normalize() QuestionFormData {
	out := QuestionFormData{
		Text:               strings.TrimSpace(f.Text),
		Options:            make([]string, len(f.Options)),
		CorrectOptionIndex: f.CorrectOptionIndex,
		Category:           strings.TrimSpace(f.Category),
		Difficulty:         f.Difficulty,
	}
	for i, o := range f.Options {
		out.Options[i] = strings.TrimSpace(o)
	}
	if out.Category == "" {
		out.Category = Category_General
	}
	if out.Difficulty == 0 {
		out.Difficulty = MinDifficulty
	}
	return out
}

// Validate checks a normalized form. All failures match ErrInvalidQuestion.
func (f QuestionFormData) Validate() error {
	if f.Text == "" {
		return invalid("Question text is required")
	}
	for _, o := range f.Options {
		if o == "" {
			return invalid("All options must be filled")
		}
	}
	if len(f.Options) < MinOptions {
		return invalid("At least %d options are required", MinOptions)
	}
	if f.CorrectOptionIndex < 0 || f.CorrectOptionIndex >= len(f.Options) {
		return invalid("Invalid correct option index")
	}
	if f.Difficulty < MinDifficulty || f.Difficulty > MaxDifficulty {
		return invalid("difficulty must be between %d and %d", MinDifficulty, MaxDifficulty)
	}
	return nil
}

func (f QuestionFormData) cadenceArgs() []cadence.Value {
	return []cadence.Value{
		cadence.String(f.Text),
		cadence.StringArray(f.Options),
		cadence.UInt(uint64(f.CorrectOptionIndex)),
		cadence.String(f.Category),
		cadence.UInt(uint64(f.Difficulty)),
	}
}
