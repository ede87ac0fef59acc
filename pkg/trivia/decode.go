package trivia

import (
	"fmt"

	"github.com/Layr-Labs/flow-trivia-go/pkg/cadence"
)

func decodeQuestion(v cadence.Value) (*Question, error) {
	field := func(name string) (cadence.Value, error) {
		f, err := v.Field(name)
		if err != nil {
			return cadence.Value{}, fmt.Errorf("question: %w", err)
		}
		return f, nil
	}

	q := &Question{}
	f, err := field("id")
	if err != nil {
		return nil, err
	}
	if q.ID, err = f.ToUint64(); err != nil {
		return nil, fmt.Errorf("question id: %w", err)
	}

	if f, err = field("text"); err != nil {
		return nil, err
	}
	if q.Text, err = f.ToString(); err != nil {
		return nil, fmt.Errorf("question text: %w", err)
	}

	if f, err = field("options"); err != nil {
		return nil, err
	}
	if q.Options, err = f.ToStringSlice(); err != nil {
		return nil, fmt.Errorf("question options: %w", err)
	}

	if f, err = field("correctOptionIndex"); err != nil {
		return nil, err
	}
	idx, err := f.ToUint64()
	if err != nil {
		return nil, fmt.Errorf("question correctOptionIndex: %w", err)
	}
	q.CorrectOptionIndex = int(idx)

	if f, err = field("category"); err != nil {
		return nil, err
	}
	if q.Category, err = f.ToString(); err != nil {
		return nil, fmt.Errorf("question category: %w", err)
	}

	if f, err = field("difficulty"); err != nil {
		return nil, err
	}
	difficulty, err := f.ToUint64()
	if err != nil {
		return nil, fmt.Errorf("question difficulty: %w", err)
	}
	q.Difficulty = int(difficulty)

	return q, nil
}

func decodePlayerStats(v cadence.Value) (*PlayerStats, error) {
	if v.IsNil() {
		return nil, nil
	}
	stats := &PlayerStats{}

	f, err := v.Field("address")
	if err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	}
	if stats.Address, err = f.ToString(); err != nil {
		return nil, fmt.Errorf("player stats address: %w", err)
	}

	if f, err = v.Field("correctAnswers"); err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	}
	if stats.CorrectAnswers, err = f.ToUint64(); err != nil {
		return nil, fmt.Errorf("player stats correctAnswers: %w", err)
	}

	if f, err = v.Field("totalAnswers"); err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	}
	if stats.TotalAnswers, err = f.ToUint64(); err != nil {
		return nil, fmt.Errorf("player stats totalAnswers: %w", err)
	}
	return stats, nil
}

func decodeUint64Set(v cadence.Value) (map[uint64]bool, error) {
	items, err := v.ToArray()
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]bool, len(items))
	for i, item := range items {
		n, err := item.ToUint64()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[n] = true
	}
	return out, nil
}
