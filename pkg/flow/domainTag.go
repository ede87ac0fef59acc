package flow

const domainTagLength = 32

// TransactionDomainTag prefixes every transaction message before signing.
var TransactionDomainTag = mustPadDomainTag("FLOW-V0.0-transaction")

func mustPadDomainTag(tag string) [domainTagLength]byte {
	if len(tag) > domainTagLength {
		panic("domain tag longer than 32 bytes")
	}
	var padded [domainTagLength]byte
	copy(padded[:], tag)
	return padded
}

func withDomainTag(tag [domainTagLength]byte, msg []byte) []byte {
	out := make([]byte, 0, domainTagLength+len(msg))
	out = append(out, tag[:]...)
	return append(out, msg...)
}
