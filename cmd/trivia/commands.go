package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/logger"
	"github.com/Layr-Labs/flow-trivia-go/pkg/persistence"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
	"github.com/Layr-Labs/flow-trivia-go/pkg/trivia"
)

// questionsCommand handles the questions subcommand
func questionsCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	questions, err := rt.service.ListQuestions(c.Context)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		fmt.Println("No questions yet")
		return nil
	}

	for _, q := range questions {
		printQuestion(os.Stdout, q)
		fmt.Println()
	}
	return nil
}

// questionCommand handles the question subcommand
func questionCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	q, err := rt.service.GetQuestion(c.Context, c.Uint64("id"))
	if err != nil {
		return err
	}
	printQuestion(os.Stdout, q)
	return nil
}

// statsCommand handles the stats subcommand
func statsCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	var player flow.Address
	if raw := c.String("player"); raw != "" {
		player, err = flow.HexToAddress(raw)
	} else {
		player, err = rt.cfg.Account()
	}
	if err != nil {
		return fmt.Errorf("invalid player address: %w", err)
	}

	data, err := rt.service.GetPlayerData(c.Context, player)
	if err != nil {
		return err
	}
	printPlayerData(os.Stdout, player, data)
	return nil
}

// answerCommand handles the answer subcommand
func answerCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	player, err := newAuthorizer(c.Context, rt.cfg, rt.logger)
	if err != nil {
		return err
	}

	questionID := c.Uint64("id")
	fmt.Printf("📝 Answering question %d as %s\n", questionID, player.Address().HexWithPrefix())

	outcome, err := rt.service.SubmitAnswer(c.Context, player, questionID, c.Int("option"))
	if err != nil {
		if errors.Is(err, trivia.ErrAlreadyAnswered) {
			return errors.New(trivia.MessageAlreadyAnswered)
		}
		return err
	}

	fmt.Printf("✅ Transaction sealed: %s\n", outcome.TxID)
	fmt.Println(outcome.Message)
	if outcome.Stats != nil {
		fmt.Printf("Score: %d / %d\n", outcome.Stats.CorrectAnswers, outcome.Stats.TotalAnswers)
	}
	return nil
}

// addQuestionCommand handles the add-question subcommand
func addQuestionCommand(c *cli.Context) error {
	form, err := questionForm(c)
	if err != nil {
		return err
	}

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	admin, err := newAuthorizer(c.Context, rt.cfg, rt.logger)
	if err != nil {
		return err
	}

	fmt.Printf("📝 Adding question as %s\n", admin.Address().HexWithPrefix())

	result, err := rt.service.AddQuestion(c.Context, admin, form)
	if err != nil {
		return err
	}

	fmt.Printf("✅ %s\n", trivia.MessageQuestionAdded)
	fmt.Printf("Transaction: %s\n", result.TxID)
	return nil
}

// questionForm reads the form from --file when given, otherwise from flags.
func questionForm(c *cli.Context) (trivia.QuestionFormData, error) {
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return trivia.QuestionFormData{}, fmt.Errorf("failed to read question file: %w", err)
		}
		var form trivia.QuestionFormData
		if err := yaml.Unmarshal(data, &form); err != nil {
			return trivia.QuestionFormData{}, fmt.Errorf("failed to parse question file: %w", err)
		}
		return form, nil
	}

	return trivia.QuestionFormData{
		Text:               c.String("text"),
		Options:            c.StringSlice("choice"),
		CorrectOptionIndex: c.Int("correct"),
		Category:           c.String("category"),
		Difficulty:         c.Int("difficulty"),
	}, nil
}

// signCommand handles the sign subcommand
func signCommand(c *cli.Context) error {
	cfg, err := parseTriviaConfig(c)
	if err != nil {
		return err
	}
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	message := c.String("message")
	digest, err := signer.Hash(message)
	if err != nil {
		return err
	}

	s, err := newSigner(c.Context, cfg, l)
	if err != nil {
		return err
	}
	sig, err := s.SignMessage(c.Context, message)
	if err != nil {
		return err
	}

	fmt.Printf("Digest (SHA3-256): %s\n", hexutil.Encode(digest))
	fmt.Printf("Signature: %s\n", sig)
	return nil
}

// pubkeyCommand handles the pubkey subcommand
func pubkeyCommand(c *cli.Context) error {
	cfg, err := parseTriviaConfig(c)
	if err != nil {
		return err
	}
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	s, err := newSigner(c.Context, cfg, l)
	if err != nil {
		return err
	}
	pub, err := s.PublicKeyHex(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Public key: %s\n", pub)
	fmt.Println("Signature algorithm: ECDSA_P256")
	fmt.Println("Hash algorithm: SHA3_256")
	return nil
}

// keygenCommand handles the keygen subcommand
func keygenCommand(c *cli.Context) error {
	key, err := signer.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	privateKey := signer.PrivateKeyHex(key)
	publicKey := signer.PublicKeyHex(&key.PublicKey)

	if output := c.String("output"); output != "" {
		if err := os.WriteFile(output, []byte(privateKey+"\n"), 0600); err != nil {
			return fmt.Errorf("failed to write key file: %w", err)
		}
		fmt.Printf("✅ Private key written to: %s\n", output)
	} else {
		fmt.Printf("Private key: %s\n", privateKey)
	}
	fmt.Printf("Public key: %s\n", publicKey)
	fmt.Println("Register the public key on your account with ECDSA_P256 and SHA3_256.")
	return nil
}

// historyCommand handles the history subcommand
func historyCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	records, err := rt.service.History()
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No transactions recorded")
		return nil
	}
	printHistory(os.Stdout, records)
	return nil
}

func printQuestion(w io.Writer, q *trivia.Question) {
	fmt.Fprintf(w, "#%d [%s, difficulty %d]\n", q.ID, q.Category, q.Difficulty)
	fmt.Fprintf(w, "%s\n", q.Text)
	for i, option := range q.Options {
		fmt.Fprintf(w, "  %d) %s\n", i, option)
	}
}

func printPlayerData(w io.Writer, player flow.Address, data *trivia.PlayerData) {
	fmt.Fprintf(w, "Player: %s\n", player.HexWithPrefix())
	if data.Stats == nil {
		fmt.Fprintln(w, "No answers yet")
		return
	}
	fmt.Fprintf(w, "Correct answers: %d\n", data.Stats.CorrectAnswers)
	fmt.Fprintf(w, "Total answers: %d\n", data.Stats.TotalAnswers)

	ids := make([]uint64, 0, len(data.Answered))
	for id := range data.Answered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = fmt.Sprintf("%d", id)
	}
	fmt.Fprintf(w, "Answered: %s\n", strings.Join(strs, ", "))
}

func printHistory(w io.Writer, records []*persistence.TransactionRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMITTED\tKIND\tSTATUS\tTX\tDETAILS")
	for _, r := range records {
		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		details := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			details = append(details, k+"="+r.Details[k])
		}
		if r.ErrorMessage != "" {
			details = append(details, "error="+r.ErrorMessage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.SubmittedAt.Format(time.RFC3339),
			r.Kind,
			r.Status,
			r.TxID,
			strings.Join(details, " "),
		)
	}
	_ = tw.Flush()
}
