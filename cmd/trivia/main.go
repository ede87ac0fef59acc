package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/flow-trivia-go/pkg/config"
)

func main() {
	app := newApp()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "trivia",
		Usage: "Play the Flow trivia game from the command line",
		Description: `A client for the TriviaGame contract on Flow.

Read-only commands (questions, question, stats) only need an access node.
Commands that submit transactions (answer, add-question) sign with the
configured account key, loaded from TRIVIA_PRIVATE_KEY, a key file or AWS KMS.

Supported networks: ` + config.GetSupportedNetworksString(),
		Version: "1.0.0",
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "questions",
				Usage:  "List every question on the ledger",
				Action: questionsCommand,
			},
			{
				Name:  "question",
				Usage: "Show one question",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Question ID",
						Required: true,
					},
				},
				Action: questionCommand,
			},
			{
				Name:  "stats",
				Usage: "Show a player's stats and answered questions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "player",
						Usage: "Player address (defaults to the configured account)",
					},
				},
				Action: statsCommand,
			},
			{
				Name:  "answer",
				Usage: "Answer a question as the configured account",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Question ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "option",
						Usage:    "Zero-based index of the chosen option",
						Required: true,
					},
				},
				Action: answerCommand,
			},
			{
				Name:  "add-question",
				Usage: "Add a question, signed by the admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "YAML file holding the question form",
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Question text",
					},
					&cli.StringSliceFlag{
						Name:  "choice",
						Usage: "Answer option, repeat for each option",
					},
					&cli.IntFlag{
						Name:  "correct",
						Usage: "Zero-based index of the correct option",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Question category",
						Value: "General",
					},
					&cli.IntFlag{
						Name:  "difficulty",
						Usage: "Difficulty from 1 to 5",
						Value: 1,
					},
				},
				Action: addQuestionCommand,
			},
			{
				Name:  "sign",
				Usage: "Sign a hex encoded transaction message with the configured key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Usage:    "Hex encoded message, with or without 0x",
						Required: true,
					},
				},
				Action: signCommand,
			},
			{
				Name:   "pubkey",
				Usage:  "Print the public key of the configured signer",
				Action: pubkeyCommand,
			},
			{
				Name:  "keygen",
				Usage: "Generate a new P-256 key pair",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "Write the private key to this file instead of printing it",
					},
				},
				Action: keygenCommand,
			},
			{
				Name:   "history",
				Usage:  "List transactions recorded in the local journal",
				Action: historyCommand,
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to a YAML config file",
			EnvVars: []string{config.EnvTriviaConfigFile},
		},
		&cli.StringFlag{
			Name:    "network",
			Usage:   fmt.Sprintf("Flow network (%s)", config.GetSupportedNetworksString()),
			EnvVars: []string{config.EnvTriviaNetwork},
		},
		&cli.StringFlag{
			Name:    "access-node",
			Usage:   "Access node REST endpoint (defaults to the network's)",
			EnvVars: []string{config.EnvTriviaAccessNode},
		},
		&cli.StringFlag{
			Name:    "contract-address",
			Usage:   "Address holding TriviaGame and TriviaAdmin",
			EnvVars: []string{config.EnvTriviaContractAddress},
		},
		&cli.StringFlag{
			Name:    "account",
			Aliases: []string{"a"},
			Usage:   "Signing account address",
			EnvVars: []string{config.EnvTriviaAccountAddress},
		},
		&cli.UintFlag{
			Name:    "key-index",
			Usage:   "Key index of the signing key on the account",
			EnvVars: []string{config.EnvTriviaKeyIndex},
		},
		&cli.StringFlag{
			Name:    "key-source",
			Usage:   "Where the signing key comes from (env, file, aws-kms)",
			EnvVars: []string{config.EnvTriviaKeySource},
		},
		&cli.StringFlag{
			Name:    "key-file",
			Usage:   "File holding the hex private key (file key source)",
			EnvVars: []string{config.EnvTriviaKeyFile},
		},
		&cli.StringFlag{
			Name:    "kms-key-id",
			Usage:   "AWS KMS key ID (aws-kms key source)",
			EnvVars: []string{config.EnvTriviaKMSKeyID},
		},
		&cli.StringFlag{
			Name:    "aws-region",
			Usage:   "AWS region for KMS",
			EnvVars: []string{config.EnvTriviaAWSRegion},
		},
		&cli.StringFlag{
			Name:    "journal",
			Usage:   "Transaction journal backend (none, memory, badger, redis)",
			EnvVars: []string{config.EnvTriviaJournalType},
		},
		&cli.StringFlag{
			Name:    "journal-path",
			Usage:   "Data directory for the badger journal",
			EnvVars: []string{config.EnvTriviaJournalPath},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis address for the redis journal",
			EnvVars: []string{config.EnvTriviaRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password for the redis journal",
			EnvVars: []string{config.EnvTriviaRedisPassword},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"d"},
			Usage:   "Enable debug logging",
			EnvVars: []string{config.EnvTriviaDebug},
		},
	}
}
