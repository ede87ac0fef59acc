package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/transactionSigner"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the trivia CLI
const (
	EnvTriviaConfigFile      = "TRIVIA_CONFIG"
	EnvTriviaNetwork         = "TRIVIA_NETWORK"
	EnvTriviaAccessNode      = "TRIVIA_ACCESS_NODE"
	EnvTriviaContractAddress = "TRIVIA_CONTRACT_ADDRESS"
	EnvTriviaAccountAddress  = "TRIVIA_ACCOUNT_ADDRESS"
	EnvTriviaKeyIndex        = "TRIVIA_KEY_INDEX"
	EnvTriviaKeySource       = "TRIVIA_KEY_SOURCE"
	EnvTriviaKeyFile         = "TRIVIA_KEY_FILE"
	EnvTriviaKMSKeyID        = "TRIVIA_KMS_KEY_ID"
	EnvTriviaAWSRegion       = "TRIVIA_AWS_REGION"
	EnvTriviaJournalType     = "TRIVIA_JOURNAL_TYPE"
	EnvTriviaJournalPath     = "TRIVIA_JOURNAL_PATH"
	EnvTriviaRedisAddress    = "TRIVIA_REDIS_ADDRESS"
	EnvTriviaRedisPassword   = "TRIVIA_REDIS_PASSWORD"
	EnvTriviaDebug           = "TRIVIA_DEBUG"

	// EnvTriviaPrivateKey holds the signing key for the env key source. The
	// key is read from here at signing setup and never stored in config.
	EnvTriviaPrivateKey = "TRIVIA_PRIVATE_KEY"
)

type Network string

const (
	Network_Mainnet  Network = "mainnet"
	Network_Testnet  Network = "testnet"
	Network_Emulator Network = "emulator"
)

type NetworkEndpoints struct {
	AccessNode      string
	WalletDiscovery string
	// Contract is where TriviaGame and TriviaAdmin are deployed, if known.
	Contract string
}

var NetworkDefaults = map[Network]NetworkEndpoints{
	Network_Mainnet: {
		AccessNode:      "https://rest-mainnet.onflow.org",
		WalletDiscovery: "https://fcl-discovery.onflow.org/authn",
	},
	Network_Testnet: {
		AccessNode:      "https://rest-testnet.onflow.org",
		WalletDiscovery: "https://fcl-discovery.onflow.org/testnet/authn",
		Contract:        "0x6749ea8e0a268f1a",
	},
	Network_Emulator: {
		AccessNode:      "http://localhost:8888",
		WalletDiscovery: "http://localhost:8701/fcl/authn",
		Contract:        "0xf8d6e0586b0a20c7",
	},
}

// GetSupportedNetworksString lists networks for CLI help
func GetSupportedNetworksString() string {
	return fmt.Sprintf("%s, %s, %s", Network_Mainnet, Network_Testnet, Network_Emulator)
}

type JournalType string

const (
	JournalType_None   JournalType = "none"
	JournalType_Memory JournalType = "memory"
	JournalType_Badger JournalType = "badger"
	JournalType_Redis  JournalType = "redis"
)

type JournalConfig struct {
	Type           JournalType `json:"type" yaml:"type"`
	DataPath       string      `json:"dataPath" yaml:"dataPath"`
	RedisAddress   string      `json:"redisAddress" yaml:"redisAddress"`
	RedisPassword  string      `json:"-" yaml:"redisPassword"`
	RedisDB        int         `json:"redisDb" yaml:"redisDb"`
	RedisKeyPrefix string      `json:"redisKeyPrefix" yaml:"redisKeyPrefix"`
}

// TriviaConfig is the complete, explicit configuration of the trivia client.
// Nothing reads it from globals.
type TriviaConfig struct {
	Network            Network `json:"network" yaml:"network"`
	AccessNodeURL      string  `json:"accessNodeUrl" yaml:"accessNodeUrl"`
	WalletDiscoveryURL string  `json:"walletDiscoveryUrl" yaml:"walletDiscoveryUrl"`

	// ContractAddress backs both 0xTriviaGame and 0xTriviaAdmin.
	ContractAddress string `json:"contractAddress" yaml:"contractAddress"`

	// AccountAddress and KeyIndex identify the signing account key.
	AccountAddress string `json:"accountAddress" yaml:"accountAddress"`
	KeyIndex       uint32 `json:"keyIndex" yaml:"keyIndex"`

	Signer  transactionSigner.SignerConfig `json:"signer" yaml:"signer"`
	Journal JournalConfig                  `json:"journal" yaml:"journal"`

	GasLimit       uint64        `json:"gasLimit" yaml:"gasLimit"`
	PollInterval   time.Duration `json:"pollInterval" yaml:"pollInterval"`
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`

	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns a testnet configuration signing with the key in
// TRIVIA_PRIVATE_KEY and journaling to ./trivia-journal.
func DefaultConfig() *TriviaConfig {
	cfg := &TriviaConfig{
		Network: Network_Testnet,
		Signer: transactionSigner.SignerConfig{
			Source: transactionSigner.KeySource_Env,
			EnvVar: EnvTriviaPrivateKey,
		},
		Journal: JournalConfig{
			Type:     JournalType_Badger,
			DataPath: "./trivia-journal",
		},
		GasLimit:       999,
		PollInterval:   time.Second,
		RequestTimeout: 30 * time.Second,
	}
	cfg.ApplyNetworkDefaults()
	return cfg
}

// LoadConfigFile overlays a YAML file on top of DefaultConfig.
func LoadConfigFile(path string) (*TriviaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	previous := cfg.Network
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	if cfg.Network != previous {
		cfg.resetNetworkEndpoints(previous)
	}
	cfg.ApplyNetworkDefaults()
	return cfg, nil
}

// resetNetworkEndpoints clears endpoints still holding the defaults of the
// previous network so ApplyNetworkDefaults fills the new network's values.
func (c *TriviaConfig) resetNetworkEndpoints(previous Network) {
	old := NetworkDefaults[previous]
	if c.AccessNodeURL == old.AccessNode {
		c.AccessNodeURL = ""
	}
	if c.WalletDiscoveryURL == old.WalletDiscovery {
		c.WalletDiscoveryURL = ""
	}
	if c.ContractAddress == old.Contract {
		c.ContractAddress = ""
	}
}

// SetNetwork switches network, moving any endpoint left at the old
// network's default to the new one.
func (c *TriviaConfig) SetNetwork(n Network) {
	if n == c.Network {
		return
	}
	previous := c.Network
	c.Network = n
	c.resetNetworkEndpoints(previous)
	c.ApplyNetworkDefaults()
}

// ApplyNetworkDefaults fills empty endpoints from the selected network.
func (c *TriviaConfig) ApplyNetworkDefaults() {
	defaults, ok := NetworkDefaults[c.Network]
	if !ok {
		return
	}
	if c.AccessNodeURL == "" {
		c.AccessNodeURL = defaults.AccessNode
	}
	if c.WalletDiscoveryURL == "" {
		c.WalletDiscoveryURL = defaults.WalletDiscovery
	}
	if c.ContractAddress == "" {
		c.ContractAddress = defaults.Contract
	}
}

// Validate checks everything read-only commands need.
func (c *TriviaConfig) Validate() error {
	var allErrors field.ErrorList

	if _, ok := NetworkDefaults[c.Network]; !ok {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("network"), c.Network,
			[]string{string(Network_Mainnet), string(Network_Testnet), string(Network_Emulator)}))
	}
	if c.AccessNodeURL == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("accessNodeUrl"), "access node URL is required"))
	} else if u, err := url.Parse(c.AccessNodeURL); err != nil || u.Scheme == "" || u.Host == "" {
		allErrors = append(allErrors, field.Invalid(field.NewPath("accessNodeUrl"), c.AccessNodeURL, "must be an absolute URL"))
	}
	if c.ContractAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("contractAddress"), "contract address is required"))
	} else if _, err := flow.HexToAddress(c.ContractAddress); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("contractAddress"), c.ContractAddress, err.Error()))
	}
	if c.AccountAddress != "" {
		if _, err := flow.HexToAddress(c.AccountAddress); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("accountAddress"), c.AccountAddress, err.Error()))
		}
	}
	if c.PollInterval < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("pollInterval"), c.PollInterval.String(), "must not be negative"))
	}

	switch c.Journal.Type {
	case JournalType_None, JournalType_Memory:
	case JournalType_Badger:
		if c.Journal.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("journal", "dataPath"), "dataPath is required for the badger journal"))
		}
	case JournalType_Redis:
		if c.Journal.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("journal", "redisAddress"), "redisAddress is required for the redis journal"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("journal", "type"), c.Journal.Type,
			[]string{string(JournalType_None), string(JournalType_Memory), string(JournalType_Badger), string(JournalType_Redis)}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// ValidateSigning additionally checks what signing commands need.
func (c *TriviaConfig) ValidateSigning() error {
	var allErrors field.ErrorList

	if err := c.Validate(); err != nil {
		return err
	}
	if c.AccountAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("accountAddress"), "account address is required to sign"))
	}

	signerPath := field.NewPath("signer")
	switch c.Signer.Source {
	case transactionSigner.KeySource_Env:
		if c.Signer.EnvVar == "" {
			allErrors = append(allErrors, field.Required(signerPath.Child("envVar"), "envVar is required for the env key source"))
		}
	case transactionSigner.KeySource_File:
		if c.Signer.KeyFile == "" {
			allErrors = append(allErrors, field.Required(signerPath.Child("keyFile"), "keyFile is required for the file key source"))
		}
	case transactionSigner.KeySource_AWSKMS:
		if c.Signer.KMSKeyID == "" {
			allErrors = append(allErrors, field.Required(signerPath.Child("kmsKeyId"), "kmsKeyId is required for the aws-kms key source"))
		}
	case transactionSigner.KeySource_Static:
		allErrors = append(allErrors, field.Forbidden(signerPath.Child("source"), "static keys are for tests only"))
	default:
		allErrors = append(allErrors, field.NotSupported(signerPath.Child("source"), c.Signer.Source,
			[]string{string(transactionSigner.KeySource_Env), string(transactionSigner.KeySource_File), string(transactionSigner.KeySource_AWSKMS)}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// Aliases maps the contract placeholders used in scripts to the deployment.
func (c *TriviaConfig) Aliases() (map[string]flow.Address, error) {
	addr, err := flow.HexToAddress(c.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address: %w", err)
	}
	return map[string]flow.Address{
		"0xTriviaGame":  addr,
		"0xTriviaAdmin": addr,
	}, nil
}

func (c *TriviaConfig) Account() (flow.Address, error) {
	if c.AccountAddress == "" {
		return flow.EmptyAddress, fmt.Errorf("account address is not configured")
	}
	return flow.HexToAddress(c.AccountAddress)
}
