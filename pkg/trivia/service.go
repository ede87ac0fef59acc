package trivia

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Layr-Labs/flow-trivia-go/pkg/authorization"
	"github.com/Layr-Labs/flow-trivia-go/pkg/cadence"
	"github.com/Layr-Labs/flow-trivia-go/pkg/clients/flowAccess"
	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/ledger"
	"github.com/Layr-Labs/flow-trivia-go/pkg/persistence"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ILedger is the part of the ledger client the game needs.
type ILedger interface {
	Query(ctx context.Context, script string, args ...cadence.Value) (cadence.Value, error)
	Mutate(ctx context.Context, req ledger.MutateRequest) (string, error)
	WaitSealed(ctx context.Context, txID string) (*flowAccess.TransactionResult, error)
}

var _ ILedger = (*ledger.Ledger)(nil)

// IAccount is a signing account, satisfied by *authorization.Authorizer.
type IAccount interface {
	Address() flow.Address
	Authorize(account authorization.Account) *authorization.Authorization
}

var _ IAccount = (*authorization.Authorizer)(nil)

type Service struct {
	ledger  ILedger
	journal persistence.ITransactionJournal
	logger  *zap.Logger
}

// NewService builds the game service. journal may be nil to skip recording.
func NewService(l ILedger, journal persistence.ITransactionJournal, logger *zap.Logger) (*Service, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	return &Service{
		ledger:  l,
		journal: journal,
		logger:  logger,
	}, nil
}

// ListQuestions returns questions 1..n, stopping at the first missing id.
func (s *Service) ListQuestions(ctx context.Context) ([]*Question, error) {
	value, err := s.ledger.Query(ctx, listQuestionsScript)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch questions: %w", err)
	}
	items, err := value.ToArray()
	if err != nil {
		return nil, fmt.Errorf("unexpected questions result: %w", err)
	}

	questions := make([]*Question, 0, len(items))
	for _, item := range items {
		q, err := decodeQuestion(item)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// GetQuestion returns ErrQuestionNotFound for unknown ids.
func (s *Service) GetQuestion(ctx context.Context, id uint64) (*Question, error) {
	value, err := s.ledger.Query(ctx, getQuestionScript, cadence.UInt64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch question %d: %w", id, err)
	}
	if value.IsNil() {
		return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, id)
	}
	return decodeQuestion(value)
}

// GetPlayerStats returns nil stats for a player with no answers yet.
func (s *Service) GetPlayerStats(ctx context.Context, player flow.Address) (*PlayerStats, error) {
	value, err := s.ledger.Query(ctx, getPlayerStatsScript, cadence.Address(player.HexWithPrefix()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player stats: %w", err)
	}
	return decodePlayerStats(value)
}

func (s *Service) GetAnsweredQuestions(ctx context.Context, player flow.Address) (map[uint64]bool, error) {
	value, err := s.ledger.Query(ctx, getAnsweredQuestionsScript, cadence.Address(player.HexWithPrefix()))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch answered questions: %w", err)
	}
	answered, err := decodeUint64Set(value)
	if err != nil {
		return nil, fmt.Errorf("unexpected answered questions result: %w", err)
	}
	return answered, nil
}

// GetPlayerData fetches stats and answered questions concurrently.
func (s *Service) GetPlayerData(ctx context.Context, player flow.Address) (*PlayerData, error) {
	data := &PlayerData{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.GetPlayerStats(gctx, player)
		data.Stats = stats
		return err
	})
	g.Go(func() error {
		answered, err := s.GetAnsweredQuestions(gctx, player)
		data.Answered = answered
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

// AddQuestion validates the form and submits it signed by admin in every
// role, then waits for the seal.
func (s *Service) AddQuestion(ctx context.Context, admin IAccount, form QuestionFormData) (*AddQuestionResult, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if !IsKnownCategory(form.Category) {
		s.logger.Sugar().Warnw("Adding question with non-standard category", "category", form.Category)
	}

	txID, err := s.ledger.Mutate(ctx, ledger.MutateRequest{
		Script:      addQuestionTransaction,
		Args:        form.cadenceArgs(),
		Proposer:    admin.Authorize,
		Payer:       admin.Authorize,
		Authorizers: []authorization.AuthorizationFunction{admin.Authorize},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit question: %w", err)
	}

	record := persistence.NewTransactionRecord(persistence.RecordKind_AddQuestion, admin.Address().HexWithPrefix(), txID)
	record.Details["text"] = form.Text
	record.Details["category"] = form.Category
	record.Details["difficulty"] = strconv.Itoa(form.Difficulty)
	s.record(record)

	result, err := s.ledger.WaitSealed(ctx, txID)
	if err == nil {
		err = failureFromEvents(txID, result)
	}
	s.finish(record, err)
	if err != nil {
		return nil, err
	}

	s.logger.Sugar().Infow("Question added", "tx_id", txID, "category", form.Category)
	return &AddQuestionResult{TxID: txID, RecordID: record.ID}, nil
}

// SubmitAnswer answers one question as player. Correctness is computed
// locally from the question's correct option once the answer is sealed.
func (s *Service) SubmitAnswer(ctx context.Context, player IAccount, questionID uint64, option int) (*AnswerOutcome, error) {
	address := player.Address()

	question, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if option < 0 || option >= len(question.Options) {
		return nil, fmt.Errorf("%w: %d (question %d has %d options)", ErrInvalidOption, option, questionID, len(question.Options))
	}

	answered, err := s.GetAnsweredQuestions(ctx, address)
	if err != nil {
		return nil, err
	}
	if answered[questionID] {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyAnswered, questionID)
	}

	txID, err := s.ledger.Mutate(ctx, ledger.MutateRequest{
		Script:      answerQuestionTransaction,
		Args:        []cadence.Value{cadence.UInt64(questionID), cadence.UInt(uint64(option))},
		Proposer:    player.Authorize,
		Payer:       player.Authorize,
		Authorizers: []authorization.AuthorizationFunction{player.Authorize},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit answer: %w", err)
	}

	record := persistence.NewTransactionRecord(persistence.RecordKind_Answer, address.HexWithPrefix(), txID)
	record.Details["questionId"] = strconv.FormatUint(questionID, 10)
	record.Details["option"] = strconv.Itoa(option)
	s.record(record)

	_, err = s.ledger.WaitSealed(ctx, txID)
	s.finish(record, err)
	if err != nil {
		return nil, err
	}

	outcome := &AnswerOutcome{
		TxID:      txID,
		IsCorrect: option == question.CorrectOptionIndex,
		Message:   MessageWrong,
	}
	if outcome.IsCorrect {
		outcome.Message = MessageCorrect
	}

	stats, err := s.GetPlayerStats(ctx, address)
	if err != nil {
		return nil, err
	}
	outcome.Stats = stats

	s.logger.Sugar().Infow("Answer sealed",
		"tx_id", txID,
		"player", address.HexWithPrefix(),
		"question_id", questionID,
		"correct", outcome.IsCorrect,
	)
	return outcome, nil
}

// History returns the journal's records, oldest first.
func (s *Service) History() ([]*persistence.TransactionRecord, error) {
	if s.journal == nil {
		return []*persistence.TransactionRecord{}, nil
	}
	return s.journal.ListRecords()
}

// record writes to the journal. The ledger is authoritative, so a journal
// failure is logged and does not fail the game operation.
func (s *Service) record(r *persistence.TransactionRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveRecord(r); err != nil {
		s.logger.Sugar().Warnw("Failed to write transaction journal", "tx_id", r.TxID, "error", err)
	}
}

func (s *Service) finish(r *persistence.TransactionRecord, err error) {
	if err != nil {
		r.MarkRejected(err)
	} else {
		r.MarkSealed()
	}
	s.record(r)
}

// failureFromEvents treats a sealed transaction that emitted an error or
// failure event as rejected.
func failureFromEvents(txID string, result *flowAccess.TransactionResult) error {
	if result == nil {
		return nil
	}
	for _, ev := range result.Events {
		if !strings.Contains(ev.Type, "Error") && !strings.Contains(ev.Type, "Failure") {
			continue
		}
		message := "Transaction failed"
		if raw, err := base64.StdEncoding.DecodeString(ev.Payload); err == nil {
			if v, err := cadence.Decode(raw); err == nil {
				if f, err := v.Field("message"); err == nil {
					if m, err := f.ToString(); err == nil && m != "" {
						message = m
					}
				}
			}
		}
		return &ledger.TransactionRejectedError{
			TxID:    txID,
			Status:  result.Status,
			Message: message,
		}
	}
	return nil
}

// IsUserError reports errors caused by the caller's input rather than the
// ledger or the network.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidQuestion) ||
		errors.Is(err, ErrInvalidOption) ||
		errors.Is(err, ErrAlreadyAnswered) ||
		errors.Is(err, ErrQuestionNotFound)
}
