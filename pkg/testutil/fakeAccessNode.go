package testutil

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/Layr-Labs/flow-trivia-go/pkg/flow"
	"github.com/Layr-Labs/flow-trivia-go/pkg/signer"
)

// ScriptHandler answers an executed script with a JSON-Cadence document.
type ScriptHandler func(script string, arguments [][]byte) ([]byte, error)

// TransactionHandler applies an accepted transaction. A returned error turns
// into a failed execution with that message.
type TransactionHandler func(tx *flow.Transaction) error

type fakeKey struct {
	publicKeyHex string
	sequence     uint64
}

type fakeTxResult struct {
	pollsLeft    int
	errorMessage string
	expired      bool
}

// FakeAccessNode is an httptest server speaking enough of the Flow Access
// REST API for the ledger client. Submitted transactions have their envelope
// and payload signatures verified against the registered account keys.
type FakeAccessNode struct {
	Server *httptest.Server

	mu            sync.Mutex
	blockID       flow.Identifier
	height        uint64
	accounts      map[flow.Address]map[uint32]*fakeKey
	results       map[string]*fakeTxResult
	submitted     []*flow.Transaction
	pendingPolls  int
	expireNext    bool
	onScript      ScriptHandler
	scripts       []string
	onTransaction TransactionHandler
	txCounter     int
}

func NewFakeAccessNode() *FakeAccessNode {
	n := &FakeAccessNode{
		blockID:  flow.Identifier{0xb1, 0x0c},
		height:   1000,
		accounts: make(map[flow.Address]map[uint32]*fakeKey),
		results:  make(map[string]*fakeTxResult),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/blocks", n.handleBlocks)
	mux.HandleFunc("/v1/accounts/", n.handleAccount)
	mux.HandleFunc("/v1/scripts", n.handleScript)
	mux.HandleFunc("/v1/transactions", n.handleTransaction)
	mux.HandleFunc("/v1/transaction_results/", n.handleTransactionResult)
	n.Server = httptest.NewServer(mux)
	return n
}

func (n *FakeAccessNode) URL() string {
	return n.Server.URL
}

func (n *FakeAccessNode) Close() {
	n.Server.Close()
}

// AddAccountKey registers a P-256 public key (X||Y hex) for an account.
func (n *FakeAccessNode) AddAccountKey(addr flow.Address, keyIndex uint32, publicKeyHex string, sequence uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.accounts[addr] == nil {
		n.accounts[addr] = make(map[uint32]*fakeKey)
	}
	n.accounts[addr][keyIndex] = &fakeKey{publicKeyHex: publicKeyHex, sequence: sequence}
}

func (n *FakeAccessNode) SequenceNumber(addr flow.Address, keyIndex uint32) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if keys, ok := n.accounts[addr]; ok {
		if k, ok := keys[keyIndex]; ok {
			return k.sequence
		}
	}
	return 0
}

func (n *FakeAccessNode) SetScriptHandler(h ScriptHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onScript = h
}

func (n *FakeAccessNode) SetTransactionHandler(h TransactionHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onTransaction = h
}

// SetPendingPolls makes every new transaction report Pending for the given
// number of result polls before it seals.
func (n *FakeAccessNode) SetPendingPolls(polls int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pendingPolls = polls
}

// ExpireNextTransaction makes the next submitted transaction expire.
func (n *FakeAccessNode) ExpireNextTransaction() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expireNext = true
}

// Scripts returns every script executed so far, in order.
func (n *FakeAccessNode) Scripts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.scripts))
	copy(out, n.scripts)
	return out
}

// Submitted returns the transactions accepted so far.
func (n *FakeAccessNode) Submitted() []*flow.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*flow.Transaction, len(n.submitted))
	copy(out, n.submitted)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"code": status, "message": msg})
}

func (n *FakeAccessNode) handleBlocks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("height") != "sealed" {
		writeError(w, http.StatusBadRequest, "only sealed height is supported")
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	writeJSON(w, http.StatusOK, []map[string]interface{}{{
		"header": map[string]string{
			"id":     n.blockID.Hex(),
			"height": strconv.FormatUint(n.height, 10),
		},
	}})
}

func (n *FakeAccessNode) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := flow.HexToAddress(strings.TrimPrefix(r.URL.Path, "/v1/accounts/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	keys, ok := n.accounts[addr]
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	outKeys := make([]map[string]interface{}, 0, len(keys))
	for idx, k := range keys {
		outKeys = append(outKeys, map[string]interface{}{
			"index":             strconv.FormatUint(uint64(idx), 10),
			"public_key":        "0x" + k.publicKeyHex,
			"signing_algorithm": "ECDSA_P256",
			"hashing_algorithm": "SHA3_256",
			"sequence_number":   strconv.FormatUint(k.sequence, 10),
			"weight":            "1000",
			"revoked":           false,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr.Hex(),
		"balance": "100000",
		"keys":    outKeys,
	})
}

type scriptRequest struct {
	Script    string   `json:"script"`
	Arguments []string `json:"arguments"`
}

func (n *FakeAccessNode) handleScript(w http.ResponseWriter, r *http.Request) {
	var req scriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	script, err := base64.StdEncoding.DecodeString(req.Script)
	if err != nil {
		writeError(w, http.StatusBadRequest, "script is not base64")
		return
	}
	args, err := decodeArgs(req.Arguments)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n.mu.Lock()
	h := n.onScript
	n.scripts = append(n.scripts, string(script))
	n.mu.Unlock()
	if h == nil {
		writeError(w, http.StatusBadRequest, "no script handler")
		return
	}

	result, err := h(string(script), args)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, base64.StdEncoding.EncodeToString(result))
}

type proposalKeyRequest struct {
	Address        string `json:"address"`
	KeyIndex       string `json:"key_index"`
	SequenceNumber string `json:"sequence_number"`
}

type signatureRequest struct {
	Address   string `json:"address"`
	KeyIndex  string `json:"key_index"`
	Signature string `json:"signature"`
}

type transactionRequest struct {
	Script             string             `json:"script"`
	Arguments          []string           `json:"arguments"`
	ReferenceBlockID   string             `json:"reference_block_id"`
	GasLimit           string             `json:"gas_limit"`
	Payer              string             `json:"payer"`
	ProposalKey        proposalKeyRequest `json:"proposal_key"`
	Authorizers        []string           `json:"authorizers"`
	PayloadSignatures  []signatureRequest `json:"payload_signatures"`
	EnvelopeSignatures []signatureRequest `json:"envelope_signatures"`
}

func (n *FakeAccessNode) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := decodeTransaction(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if tx.ReferenceBlockID != n.blockID {
		writeError(w, http.StatusBadRequest, "unknown reference block")
		return
	}
	proposer, ok := n.accounts[tx.ProposalKey.Address][tx.ProposalKey.KeyIndex]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown proposal key")
		return
	}
	if proposer.sequence != tx.ProposalKey.SequenceNumber {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid proposal key sequence number: expected %d, got %d", proposer.sequence, tx.ProposalKey.SequenceNumber))
		return
	}
	if err := n.verifySignatures(tx); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	proposer.sequence++
	n.submitted = append(n.submitted, tx)
	n.txCounter++
	txID := fmt.Sprintf("%064x", n.txCounter)

	result := &fakeTxResult{pollsLeft: n.pendingPolls, expired: n.expireNext}
	n.expireNext = false
	if !result.expired && n.onTransaction != nil {
		if err := n.onTransaction(tx); err != nil {
			result.errorMessage = err.Error()
		}
	}
	n.results[txID] = result

	writeJSON(w, http.StatusOK, map[string]string{"id": txID})
}

func (n *FakeAccessNode) verifySignatures(tx *flow.Transaction) error {
	payloadMsg, err := tx.PayloadMessage()
	if err != nil {
		return err
	}
	envelopeMsg, err := tx.EnvelopeMessage()
	if err != nil {
		return err
	}

	signedEnvelope := false
	for _, sig := range tx.EnvelopeSignatures {
		if err := n.verifyOne(sig, envelopeMsg); err != nil {
			return fmt.Errorf("envelope signature: %w", err)
		}
		if sig.Address == tx.Payer {
			signedEnvelope = true
		}
	}
	if !signedEnvelope {
		return fmt.Errorf("missing payer envelope signature")
	}

	signed := map[flow.Address]bool{tx.Payer: true}
	for _, sig := range tx.PayloadSignatures {
		if err := n.verifyOne(sig, payloadMsg); err != nil {
			return fmt.Errorf("payload signature: %w", err)
		}
		signed[sig.Address] = true
	}
	for _, addr := range tx.SignerList() {
		if !signed[addr] {
			return fmt.Errorf("missing signature for %s", addr)
		}
	}
	return nil
}

func (n *FakeAccessNode) verifyOne(sig flow.TransactionSignature, msg []byte) error {
	key, ok := n.accounts[sig.Address][sig.KeyIndex]
	if !ok {
		return fmt.Errorf("unknown key %s/%d", sig.Address, sig.KeyIndex)
	}
	pub, err := signer.ParsePublicKey(key.publicKeyHex)
	if err != nil {
		return err
	}
	if !signer.Verify(pub, hex.EncodeToString(msg), hex.EncodeToString(sig.Signature)) {
		return fmt.Errorf("invalid signature for %s/%d", sig.Address, sig.KeyIndex)
	}
	return nil
}

func (n *FakeAccessNode) handleTransactionResult(w http.ResponseWriter, r *http.Request) {
	txID := strings.TrimPrefix(r.URL.Path, "/v1/transaction_results/")

	n.mu.Lock()
	defer n.mu.Unlock()
	result, ok := n.results[txID]
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	status := "Sealed"
	switch {
	case result.expired:
		status = "Expired"
	case result.pollsLeft > 0:
		result.pollsLeft--
		status = "Pending"
	}
	statusCode := 0
	if result.errorMessage != "" && status == "Sealed" {
		statusCode = 1
	}
	errMsg := ""
	if status == "Sealed" {
		errMsg = result.errorMessage
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"block_id":         n.blockID.Hex(),
		"status":           status,
		"status_code":      statusCode,
		"error_message":    errMsg,
		"computation_used": "12",
		"events":           []interface{}{},
	})
}

func decodeArgs(in []string) ([][]byte, error) {
	out := make([][]byte, len(in))
	for i, a := range in {
		b, err := base64.StdEncoding.DecodeString(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d is not base64", i)
		}
		out[i] = b
	}
	return out, nil
}

func decodeSignatures(in []signatureRequest) ([]flow.TransactionSignature, error) {
	out := make([]flow.TransactionSignature, 0, len(in))
	for _, s := range in {
		addr, err := flow.HexToAddress(s.Address)
		if err != nil {
			return nil, err
		}
		idx, err := strconv.ParseUint(s.KeyIndex, 10, 32)
		if err != nil {
			return nil, err
		}
		sig, err := base64.StdEncoding.DecodeString(s.Signature)
		if err != nil {
			return nil, err
		}
		out = append(out, flow.TransactionSignature{Address: addr, KeyIndex: uint32(idx), Signature: sig})
	}
	return out, nil
}

func decodeTransaction(req *transactionRequest) (*flow.Transaction, error) {
	script, err := base64.StdEncoding.DecodeString(req.Script)
	if err != nil {
		return nil, fmt.Errorf("script is not base64")
	}
	args, err := decodeArgs(req.Arguments)
	if err != nil {
		return nil, err
	}
	refID, err := flow.HexToIdentifier(req.ReferenceBlockID)
	if err != nil {
		return nil, err
	}
	gas, err := strconv.ParseUint(req.GasLimit, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid gas limit")
	}
	payer, err := flow.HexToAddress(req.Payer)
	if err != nil {
		return nil, err
	}
	propAddr, err := flow.HexToAddress(req.ProposalKey.Address)
	if err != nil {
		return nil, err
	}
	propIdx, err := strconv.ParseUint(req.ProposalKey.KeyIndex, 10, 32)
	if err != nil {
		return nil, err
	}
	propSeq, err := strconv.ParseUint(req.ProposalKey.SequenceNumber, 10, 64)
	if err != nil {
		return nil, err
	}
	authorizers := make([]flow.Address, len(req.Authorizers))
	for i, a := range req.Authorizers {
		if authorizers[i], err = flow.HexToAddress(a); err != nil {
			return nil, err
		}
	}

	tx := &flow.Transaction{
		Script:           script,
		Arguments:        args,
		ReferenceBlockID: refID,
		GasLimit:         gas,
		ProposalKey:      flow.ProposalKey{Address: propAddr, KeyIndex: uint32(propIdx), SequenceNumber: propSeq},
		Payer:            payer,
		Authorizers:      authorizers,
	}

	payloadSigs, err := decodeSignatures(req.PayloadSignatures)
	if err != nil {
		return nil, err
	}
	for _, s := range payloadSigs {
		if err := tx.AddPayloadSignature(s.Address, s.KeyIndex, s.Signature); err != nil {
			return nil, err
		}
	}
	envelopeSigs, err := decodeSignatures(req.EnvelopeSignatures)
	if err != nil {
		return nil, err
	}
	for _, s := range envelopeSigs {
		if err := tx.AddEnvelopeSignature(s.Address, s.KeyIndex, s.Signature); err != nil {
			return nil, err
		}
	}
	return tx, nil
}
