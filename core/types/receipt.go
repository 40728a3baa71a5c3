package types

// Receipt summarises a committed transaction.
type Receipt struct {
	TxHash    string   `json:"txHash"`
	Program   string   `json:"program"`
	Method    string   `json:"method"`
	Signer    string   `json:"signer"`
	Nonce     uint64   `json:"nonce"`
	Timestamp int64    `json:"timestamp"`
	Events    []*Event `json:"events"`
}
