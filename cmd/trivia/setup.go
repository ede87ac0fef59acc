package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/flow-trivia-go/internal/aws"
	"github.com/Layr-Labs/flow-trivia-go/pkg/authorization"
	"github.com/Layr-Labs/flow-trivia-go/pkg/clients/flowAccess"
	"github.com/Layr-Labs/flow-trivia-go/pkg/config"
	"github.com/Layr-Labs/flow-trivia-go/pkg/ledger"
	"github.com/Layr-Labs/flow-trivia-go/pkg/logger"
	"github.com/Layr-Labs/flow-trivia-go/pkg/persistence"
	badgerJournal "github.com/Layr-Labs/flow-trivia-go/pkg/persistence/badger"
	memoryJournal "github.com/Layr-Labs/flow-trivia-go/pkg/persistence/memory"
	redisJournal "github.com/Layr-Labs/flow-trivia-go/pkg/persistence/redis"
	"github.com/Layr-Labs/flow-trivia-go/pkg/transactionSigner"
	"github.com/Layr-Labs/flow-trivia-go/pkg/trivia"
)

// parseTriviaConfig layers the config file, then flags and env vars, over
// the defaults.
func parseTriviaConfig(c *cli.Context) (*config.TriviaConfig, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("network") {
		cfg.SetNetwork(config.Network(c.String("network")))
	}
	if c.IsSet("access-node") {
		cfg.AccessNodeURL = c.String("access-node")
	}
	if c.IsSet("contract-address") {
		cfg.ContractAddress = c.String("contract-address")
	}
	if c.IsSet("account") {
		cfg.AccountAddress = c.String("account")
	}
	if c.IsSet("key-index") {
		cfg.KeyIndex = uint32(c.Uint("key-index"))
	}
	if c.IsSet("key-source") {
		cfg.Signer.Source = transactionSigner.KeySource(c.String("key-source"))
	}
	if c.IsSet("key-file") {
		cfg.Signer.KeyFile = c.String("key-file")
	}
	if c.IsSet("kms-key-id") {
		cfg.Signer.KMSKeyID = c.String("kms-key-id")
	}
	if c.IsSet("aws-region") {
		cfg.Signer.AWSRegion = c.String("aws-region")
	}
	if c.IsSet("journal") {
		cfg.Journal.Type = config.JournalType(c.String("journal"))
	}
	if c.IsSet("journal-path") {
		cfg.Journal.DataPath = c.String("journal-path")
	}
	if c.IsSet("redis-address") {
		cfg.Journal.RedisAddress = c.String("redis-address")
	}
	if c.IsSet("redis-password") {
		cfg.Journal.RedisPassword = c.String("redis-password")
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	return cfg, nil
}

// runtime holds everything a command needs. close must be called once the
// command is done.
type runtime struct {
	cfg     *config.TriviaConfig
	logger  *zap.Logger
	journal persistence.ITransactionJournal
	service *trivia.Service
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := parseTriviaConfig(c)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	aliases, err := cfg.Aliases()
	if err != nil {
		return nil, err
	}

	client, err := flowAccess.NewClient(&flowAccess.Config{
		BaseURL: cfg.AccessNodeURL,
		Timeout: cfg.RequestTimeout,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create access client: %w", err)
	}

	lc, err := ledger.NewLedger(client, &ledger.Config{
		Aliases:      aliases,
		GasLimit:     cfg.GasLimit,
		PollInterval: cfg.PollInterval,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %w", err)
	}

	journal, err := openJournal(&cfg.Journal, l)
	if err != nil {
		return nil, err
	}

	service, err := trivia.NewService(lc, journal, l)
	if err != nil {
		if journal != nil {
			_ = journal.Close()
		}
		return nil, fmt.Errorf("failed to create trivia service: %w", err)
	}

	l.Sugar().Debugw("Trivia client ready",
		"network", cfg.Network,
		"access_node", cfg.AccessNodeURL,
		"contract", cfg.ContractAddress,
		"journal", cfg.Journal.Type,
	)

	return &runtime{
		cfg:     cfg,
		logger:  l,
		journal: journal,
		service: service,
	}, nil
}

func (r *runtime) close() {
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.logger.Sugar().Warnw("Failed to close journal", "error", err)
		}
	}
	_ = r.logger.Sync()
}

// openJournal returns nil for JournalType_None.
func openJournal(cfg *config.JournalConfig, l *zap.Logger) (persistence.ITransactionJournal, error) {
	switch cfg.Type {
	case config.JournalType_None:
		return nil, nil
	case config.JournalType_Memory:
		return memoryJournal.NewMemoryJournal(), nil
	case config.JournalType_Badger:
		j, err := badgerJournal.NewBadgerJournal(cfg.DataPath, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger journal: %w", err)
		}
		return j, nil
	case config.JournalType_Redis:
		j, err := redisJournal.NewRedisJournal(&redisJournal.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis journal: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unsupported journal type: %q", cfg.Type)
	}
}

// newSigner builds the configured transaction signer. A KMS client is only
// created for the aws-kms source.
func newSigner(ctx context.Context, cfg *config.TriviaConfig, l *zap.Logger) (transactionSigner.ITransactionSigner, error) {
	var kmsClient transactionSigner.IKMSClient
	if cfg.Signer.Source == transactionSigner.KeySource_AWSKMS {
		client, err := aws.NewKMSClient(ctx, cfg.Signer.AWSRegion, l)
		if err != nil {
			return nil, fmt.Errorf("failed to create KMS client: %w", err)
		}
		kmsClient = client
	}

	s, err := transactionSigner.NewTransactionSigner(ctx, &cfg.Signer, kmsClient, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction signer: %w", err)
	}
	return s, nil
}

// newAuthorizer builds the signer for the configured account key.
func newAuthorizer(ctx context.Context, cfg *config.TriviaConfig, l *zap.Logger) (*authorization.Authorizer, error) {
	if err := cfg.ValidateSigning(); err != nil {
		return nil, fmt.Errorf("invalid signing configuration: %w", err)
	}
	address, err := cfg.Account()
	if err != nil {
		return nil, err
	}
	s, err := newSigner(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	return authorization.NewAuthorizer(address, cfg.KeyIndex, s, l)
}
