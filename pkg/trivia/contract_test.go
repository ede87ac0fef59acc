package trivia

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Layr-Labs/flow-trivia-go/pkg/cadence"
	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
)

const questionTypeID = "A.6749ea8e0a268f1a.TriviaGame.Question"

// fakeContract plays the TriviaGame and TriviaAdmin contracts behind a
// FakeAccessNode.
type fakeContract struct {
	mu        sync.Mutex
	admin     flow.Address
	questions []Question
	stats     map[string]*PlayerStats
	answered  map[string]map[uint64]bool
}

func newFakeContract(admin flow.Address, seed ...QuestionFormData) *fakeContract {
	c := &fakeContract{
		admin:    admin,
		stats:    make(map[string]*PlayerStats),
		answered: make(map[string]map[uint64]bool),
	}
	for _, f := range seed {
		c.questions = append(c.questions, Question{ID: uint64(len(c.questions) + 1), QuestionFormData: f})
	}
	return c
}

func (c *fakeContract) questionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.questions)
}

func encodeQuestion(q Question) cadence.Value {
	return cadence.Struct(questionTypeID,
		cadence.Field{Name: "id", Value: cadence.UInt64(q.ID)},
		cadence.Field{Name: "text", Value: cadence.String(q.Text)},
		cadence.Field{Name: "options", Value: cadence.StringArray(q.Options)},
		cadence.Field{Name: "correctOptionIndex", Value: cadence.UInt(uint64(q.CorrectOptionIndex))},
		cadence.Field{Name: "category", Value: cadence.String(q.Category)},
		cadence.Field{Name: "difficulty", Value: cadence.UInt(uint64(q.Difficulty))},
	)
}

func decodeArgs(arguments [][]byte) ([]cadence.Value, error) {
	out := make([]cadence.Value, len(arguments))
	for i, a := range arguments {
		v, err := cadence.Decode(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *fakeContract) executeScript(script string, arguments [][]byte) ([]byte, error) {
	args, err := decodeArgs(arguments)
	if err != nil {
		return nil, err
	}
	if strings.Contains(script, "0xTriviaGame") {
		return nil, fmt.Errorf("unresolved import in script")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.Contains(script, "while true"):
		items := make([]cadence.Value, len(c.questions))
		for i, q := range c.questions {
			items[i] = encodeQuestion(q)
		}
		return cadence.Encode(cadence.Array(items...))

	case strings.Contains(script, "main(id: UInt64)"):
		id, err := args[0].ToUint64()
		if err != nil {
			return nil, err
		}
		if id == 0 || id > uint64(len(c.questions)) {
			return cadence.Encode(cadence.Optional(nil))
		}
		q := encodeQuestion(c.questions[id-1])
		return cadence.Encode(cadence.Optional(&q))

	case strings.Contains(script, "getPlayerStats"):
		addr, err := args[0].ToString()
		if err != nil {
			return nil, err
		}
		stats, ok := c.stats[addr]
		if !ok {
			return cadence.Encode(cadence.Optional(nil))
		}
		v := cadence.Struct("A.6749ea8e0a268f1a.TriviaGame.PlayerStats",
			cadence.Field{Name: "address", Value: cadence.Address(stats.Address)},
			cadence.Field{Name: "correctAnswers", Value: cadence.UInt64(stats.CorrectAnswers)},
			cadence.Field{Name: "totalAnswers", Value: cadence.UInt64(stats.TotalAnswers)},
		)
		return cadence.Encode(cadence.Optional(&v))

	case strings.Contains(script, "getAnsweredQuestions"):
		addr, err := args[0].ToString()
		if err != nil {
			return nil, err
		}
		items := []cadence.Value{}
		for id := range c.answered[addr] {
			items = append(items, cadence.UInt64(id))
		}
		return cadence.Encode(cadence.Array(items...))
	}
	return nil, fmt.Errorf("unknown script")
}

func (c *fakeContract) executeTransaction(tx *flow.Transaction) error {
	script := string(tx.Script)
	args, err := decodeArgs(tx.Arguments)
	if err != nil {
		return err
	}
	if len(tx.Authorizers) != 1 {
		return fmt.Errorf("expected one authorizer")
	}
	signer := tx.Authorizers[0]

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.Contains(script, "adminRef.addQuestion"):
		if signer != c.admin {
			return fmt.Errorf("panic: No admin resource found")
		}
		text, _ := args[0].ToString()
		options, _ := args[1].ToStringSlice()
		correct, _ := args[2].ToUint64()
		category, _ := args[3].ToString()
		difficulty, _ := args[4].ToUint64()
		c.questions = append(c.questions, Question{
			ID: uint64(len(c.questions) + 1),
			QuestionFormData: QuestionFormData{
				Text:               text,
				Options:            options,
				CorrectOptionIndex: int(correct),
				Category:           category,
				Difficulty:         int(difficulty),
			},
		})
		return nil

	case strings.Contains(script, "TriviaGame.answerQuestion"):
		id, _ := args[0].ToUint64()
		option, _ := args[1].ToUint64()
		if id == 0 || id > uint64(len(c.questions)) {
			return fmt.Errorf("question does not exist")
		}
		addr := signer.HexWithPrefix()
		if c.answered[addr][id] {
			return fmt.Errorf("already answered")
		}
		if c.answered[addr] == nil {
			c.answered[addr] = make(map[uint64]bool)
		}
		c.answered[addr][id] = true

		stats, ok := c.stats[addr]
		if !ok {
			stats = &PlayerStats{Address: addr}
			c.stats[addr] = stats
		}
		stats.TotalAnswers++
		if int(option) == c.questions[id-1].CorrectOptionIndex {
			stats.CorrectAnswers++
		}
		return nil
	}
	return fmt.Errorf("unknown transaction")
}
