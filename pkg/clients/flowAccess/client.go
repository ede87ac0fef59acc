package flowAccess

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"go.uber.org/zap"
)

const (
	DefaultTestnetURL = "https://rest-testnet.onflow.org"
	defaultTimeout    = 30 * time.Second
	maxResponseBytes  = 16 << 20
)

// IFlowAccessClient is the part of the Flow Access REST API the ledger uses.
type IFlowAccessClient interface {
	GetLatestSealedBlock(ctx context.Context) (*BlockHeader, error)
	GetAccount(ctx context.Context, address flow.Address) (*Account, error)
	ExecuteScript(ctx context.Context, script []byte, arguments [][]byte) ([]byte, error)
	SendTransaction(ctx context.Context, tx *flow.Transaction) (string, error)
	GetTransactionResult(ctx context.Context, txID string) (*TransactionResult, error)
}

var _ IFlowAccessClient = (*Client)(nil)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultTestnetURL,
		Timeout: defaultTimeout,
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("access node URL cannot be empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid access node URL %q: %w", cfg.BaseURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// SetHttpClient replaces the underlying HTTP client.
func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) GetLatestSealedBlock(ctx context.Context) (*BlockHeader, error) {
	var blocks []block
	if err := c.do(ctx, http.MethodGet, "/v1/blocks?height=sealed", nil, &blocks); err != nil {
		return nil, fmt.Errorf("failed to get latest sealed block: %w", err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("access node returned no sealed block")
	}
	return &blocks[0].Header, nil
}

func (c *Client) GetAccount(ctx context.Context, address flow.Address) (*Account, error) {
	var account Account
	path := fmt.Sprintf("/v1/accounts/%s?expand=keys", address.Hex())
	if err := c.do(ctx, http.MethodGet, path, nil, &account); err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return &account, nil
}

// ExecuteScript runs a read-only script against the latest sealed block and
// returns the JSON-Cadence result.
func (c *Client) ExecuteScript(ctx context.Context, script []byte, arguments [][]byte) ([]byte, error) {
	body := scriptBody{
		Script:    base64.StdEncoding.EncodeToString(script),
		Arguments: encodeArguments(arguments),
	}

	var encoded string
	if err := c.do(ctx, http.MethodPost, "/v1/scripts?block_height=sealed", body, &encoded); err != nil {
		return nil, fmt.Errorf("failed to execute script: %w", err)
	}

	result, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode script result: %w", err)
	}
	return result, nil
}

// SendTransaction submits a fully signed transaction and returns its ID.
func (c *Client) SendTransaction(ctx context.Context, tx *flow.Transaction) (string, error) {
	body := newTransactionBody(tx)

	var resp transactionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", body, &resp); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("access node returned an empty transaction id")
	}

	c.logger.Sugar().Debugw("Transaction submitted",
		"tx_id", resp.ID,
		"payer", tx.Payer.HexWithPrefix(),
		"gas_limit", tx.GasLimit,
	)
	return resp.ID, nil
}

func (c *Client) GetTransactionResult(ctx context.Context, txID string) (*TransactionResult, error) {
	if txID == "" {
		return nil, fmt.Errorf("transaction id cannot be empty")
	}
	var result TransactionResult
	path := "/v1/transaction_results/" + url.PathEscape(txID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get transaction result %s: %w", txID, err)
	}
	return &result, nil
}

func newTransactionBody(tx *flow.Transaction) transactionBody {
	authorizers := make([]string, len(tx.Authorizers))
	for i, auth := range tx.Authorizers {
		authorizers[i] = auth.Hex()
	}
	return transactionBody{
		Script:           base64.StdEncoding.EncodeToString(tx.Script),
		Arguments:        encodeArguments(tx.Arguments),
		ReferenceBlockID: tx.ReferenceBlockID.Hex(),
		GasLimit:         strconv.FormatUint(tx.GasLimit, 10),
		Payer:            tx.Payer.Hex(),
		ProposalKey: proposalKeyBody{
			Address:        tx.ProposalKey.Address.Hex(),
			KeyIndex:       strconv.FormatUint(uint64(tx.ProposalKey.KeyIndex), 10),
			SequenceNumber: strconv.FormatUint(tx.ProposalKey.SequenceNumber, 10),
		},
		Authorizers:        authorizers,
		PayloadSignatures:  encodeSignatures(tx.PayloadSignatures),
		EnvelopeSignatures: encodeSignatures(tx.EnvelopeSignatures),
	}
}

func encodeArguments(args [][]byte) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = base64.StdEncoding.EncodeToString(arg)
	}
	return out
}

func encodeSignatures(sigs []flow.TransactionSignature) []signatureBody {
	out := make([]signatureBody, len(sigs))
	for i, sig := range sigs {
		out[i] = signatureBody{
			Address:   sig.Address.Hex(),
			KeyIndex:  strconv.FormatUint(uint64(sig.KeyIndex), 10),
			Signature: base64.StdEncoding.EncodeToString(sig.Signature),
		}
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Access API request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: path}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response from %s: %w", path, err)
	}
	return nil
}
