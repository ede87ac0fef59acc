package flow

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// IdentifierLength is the byte length of block and transaction IDs.
const IdentifierLength = 32

// Identifier is a block or transaction ID.
type Identifier [IdentifierLength]byte

// HexToIdentifier parses a 32-byte hex identifier.
func HexToIdentifier(s string) (Identifier, error) {
	var id Identifier
	b, err := hex.DecodeString(SansPrefix(s))
	if err != nil {
		return id, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	if len(b) != IdentifierLength {
		return id, fmt.Errorf("invalid identifier %q: expected %d bytes, got %d", s, IdentifierLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id Identifier) Hex() string {
	return hex.EncodeToString(id[:])
}

type ProposalKey struct {
	Address        Address
	KeyIndex       uint32
	SequenceNumber uint64
}

type TransactionSignature struct {
	Address     Address
	SignerIndex int
	KeyIndex    uint32
	Signature   []byte
}

// Transaction is the unsigned body of a Flow transaction plus collected
// signatures.
type Transaction struct {
	Script             []byte
	Arguments          [][]byte
	ReferenceBlockID   Identifier
	GasLimit           uint64
	ProposalKey        ProposalKey
	Payer              Address
	Authorizers        []Address
	PayloadSignatures  []TransactionSignature
	EnvelopeSignatures []TransactionSignature
}

// SignerList returns the unique accounts required to sign, ordered proposer,
// payer, then authorizers.
func (t *Transaction) SignerList() []Address {
	signers := make([]Address, 0, 2+len(t.Authorizers))
	seen := make(map[Address]struct{})
	add := func(addr Address) {
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		signers = append(signers, addr)
	}

	if t.ProposalKey.Address != EmptyAddress {
		add(t.ProposalKey.Address)
	}
	if t.Payer != EmptyAddress {
		add(t.Payer)
	}
	for _, auth := range t.Authorizers {
		add(auth)
	}
	return signers
}

func (t *Transaction) signerIndex(addr Address) (int, error) {
	for i, signer := range t.SignerList() {
		if signer == addr {
			return i, nil
		}
	}
	return -1, fmt.Errorf("address %s is not a signer of this transaction", addr)
}

// AddPayloadSignature records a signature over PayloadMessage.
func (t *Transaction) AddPayloadSignature(addr Address, keyIndex uint32, sig []byte) error {
	idx, err := t.signerIndex(addr)
	if err != nil {
		return err
	}
	t.PayloadSignatures = append(t.PayloadSignatures, TransactionSignature{
		Address:     addr,
		SignerIndex: idx,
		KeyIndex:    keyIndex,
		Signature:   sig,
	})
	sortSignatures(t.PayloadSignatures)
	return nil
}

// AddEnvelopeSignature records a signature over EnvelopeMessage.
func (t *Transaction) AddEnvelopeSignature(addr Address, keyIndex uint32, sig []byte) error {
	idx, err := t.signerIndex(addr)
	if err != nil {
		return err
	}
	t.EnvelopeSignatures = append(t.EnvelopeSignatures, TransactionSignature{
		Address:     addr,
		SignerIndex: idx,
		KeyIndex:    keyIndex,
		Signature:   sig,
	})
	sortSignatures(t.EnvelopeSignatures)
	return nil
}

func sortSignatures(sigs []TransactionSignature) {
	sort.SliceStable(sigs, func(i, j int) bool {
		if sigs[i].SignerIndex != sigs[j].SignerIndex {
			return sigs[i].SignerIndex < sigs[j].SignerIndex
		}
		return sigs[i].KeyIndex < sigs[j].KeyIndex
	})
}

type payloadCanonicalForm struct {
	Script                    []byte
	Arguments                 [][]byte
	ReferenceBlockID          []byte
	GasLimit                  uint64
	ProposalKeyAddress        []byte
	ProposalKeyIndex          uint32
	ProposalKeySequenceNumber uint64
	Payer                     []byte
	Authorizers               [][]byte
}

type signatureCanonicalForm struct {
	SignerIndex uint
	KeyIndex    uint32
	Signature   []byte
}

type envelopeCanonicalForm struct {
	Payload           payloadCanonicalForm
	PayloadSignatures []signatureCanonicalForm
}

func (t *Transaction) payloadCanonicalForm() payloadCanonicalForm {
	authorizers := make([][]byte, len(t.Authorizers))
	for i, auth := range t.Authorizers {
		authorizers[i] = auth.Bytes()
	}
	args := t.Arguments
	if args == nil {
		args = [][]byte{}
	}
	return payloadCanonicalForm{
		Script:                    t.Script,
		Arguments:                 args,
		ReferenceBlockID:          t.ReferenceBlockID[:],
		GasLimit:                  t.GasLimit,
		ProposalKeyAddress:        t.ProposalKey.Address.Bytes(),
		ProposalKeyIndex:          t.ProposalKey.KeyIndex,
		ProposalKeySequenceNumber: t.ProposalKey.SequenceNumber,
		Payer:                     t.Payer.Bytes(),
		Authorizers:               authorizers,
	}
}

func (t *Transaction) envelopeCanonicalForm() envelopeCanonicalForm {
	sigs := make([]signatureCanonicalForm, len(t.PayloadSignatures))
	for i, sig := range t.PayloadSignatures {
		sigs[i] = signatureCanonicalForm{
			SignerIndex: uint(sig.SignerIndex),
			KeyIndex:    sig.KeyIndex,
			Signature:   sig.Signature,
		}
	}
	return envelopeCanonicalForm{
		Payload:           t.payloadCanonicalForm(),
		PayloadSignatures: sigs,
	}
}

// PayloadMessage is the domain-tagged canonical payload that proposers and
// authorizers sign.
func (t *Transaction) PayloadMessage() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(t.payloadCanonicalForm())
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction payload: %w", err)
	}
	return withDomainTag(TransactionDomainTag, encoded), nil
}

// EnvelopeMessage is the domain-tagged canonical envelope that the payer signs.
func (t *Transaction) EnvelopeMessage() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(t.envelopeCanonicalForm())
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction envelope: %w", err)
	}
	return withDomainTag(TransactionDomainTag, encoded), nil
}
