// Package modules defines the data model and external-collaborator
// interfaces shared between the wallet synchronization engine and its
// (out-of-scope) cryptography and daemon-transport dependencies, the same
// way the teacher's modules package defines ConsensusSet/TransactionPool
// ahead of their modules/wallet implementation.
package modules

import "fmt"

const (
	// HashSize is the size in bytes of every fixed-size key/hash type used
	// throughout the wallet. Using arrays instead of hex strings means
	// getKeyImageOwner and friends never allocate on their hot path.
	HashSize = 32
)

type (
	// Hash is a generic 32-byte digest.
	Hash [HashSize]byte

	// PublicSpendKey identifies a subwallet.
	PublicSpendKey [HashSize]byte

	// PrivateSpendKey is the secret half of a subwallet's keypair. The zero
	// value denotes "unknown" (view-only subwallet).
	PrivateSpendKey [HashSize]byte

	// PrivateViewKey is the wallet-wide key used to scan block outputs.
	PrivateViewKey [HashSize]byte

	// KeyImage is the double-spend marker derived from an output's key and
	// the subwallet's keys. All-zero denotes a view-only subwallet's stand-in
	// key image.
	KeyImage [HashSize]byte

	// TxPublicKey is the per-transaction public key a sender embeds in a
	// transaction so the receiver can derive a shared secret with it.
	TxPublicKey [HashSize]byte

	// TxHash uniquely identifies a transaction.
	TxHash [HashSize]byte

	// PaymentID is an optional 32-byte tag correlating a payment to an
	// off-chain invoice.
	PaymentID [HashSize]byte
)

func (h Hash) String() string            { return fmt.Sprintf("%x", h[:]) }
func (k PublicSpendKey) String() string  { return fmt.Sprintf("%x", k[:]) }
func (k PrivateSpendKey) String() string { return fmt.Sprintf("%x", k[:]) }
func (k KeyImage) String() string        { return fmt.Sprintf("%x", k[:]) }
func (h TxHash) String() string          { return fmt.Sprintf("%x", h[:]) }

// IsZero reports whether the private spend key is unset, i.e. this
// subwallet is view-only.
func (k PrivateSpendKey) IsZero() bool { return k == PrivateSpendKey{} }

// UnlockTimeAsBlockHeightThreshold is the boundary below which an
// unlockTime value is interpreted as a block height instead of a Unix
// timestamp in seconds.
const UnlockTimeAsBlockHeightThreshold = 500000000

// RawOutput is an output as it appears on-chain, before recognition.
type RawOutput struct {
	Key          [HashSize]byte
	Amount       uint64
	GlobalIndex  *uint64 // nil if the daemon did not supply one for this block
}

// RawInput is an input as it appears on-chain, before recognition.
type RawInput struct {
	Amount        uint64
	KeyImage      KeyImage
	OutputOffsets []uint64
}

// RawTx is a transaction as returned by the daemon, before recognition.
// spec.md §9 calls for collapsing the source's
// RawTransaction/RawCoinbaseTransaction inheritance into one tagged struct;
// IsCoinbase is the tag. PaymentID is only ever non-nil for a standard
// (non-coinbase) transaction.
type RawTx struct {
	Hash        TxHash
	TxPublicKey TxPublicKey
	UnlockTime  uint64
	Outputs     []RawOutput
	Inputs      []RawInput
	PaymentID   *PaymentID
	IsCoinbase  bool
}

// Block is a batch of transactions at a given height, as returned by
// DaemonClient.GetWalletSyncData.
type Block struct {
	Height     uint64
	Hash       Hash
	Timestamp  uint64
	PrevHash   Hash
	CoinbaseTx *RawTx
	Txs        []RawTx
}

// ReceivedInput is an output this wallet owns, as recorded in a SubWallet.
type ReceivedInput struct {
	KeyImage          KeyImage
	Amount            uint64
	BlockHeight       uint64
	TxPublicKey       TxPublicKey
	TransactionIndex  int
	GlobalOutputIndex uint64
	Key               [HashSize]byte
	SpendHeight       uint64 // 0 == unspent
	UnlockTime        uint64
	ParentTxHash      TxHash
}

// Unspent reports whether this input has not yet been observed as spent.
func (r ReceivedInput) Unspent() bool { return r.SpendHeight == 0 }

// UnconfirmedInput is change from a locally-issued send not yet observed
// on-chain.
type UnconfirmedInput struct {
	Amount       uint64
	Key          [HashSize]byte
	ParentTxHash TxHash
}

// Transaction is the wallet-level view of an on-chain (or locked,
// not-yet-confirmed) transaction: the net effect across every subwallet it
// touches.
type Transaction struct {
	Hash        TxHash
	Fee         uint64
	BlockHeight uint64
	Timestamp   uint64
	PaymentID   PaymentID
	UnlockTime  uint64
	IsCoinbase  bool
	Transfers   map[PublicSpendKey]int64
}

// Fusion reports whether this is a zero-fee, non-coinbase self transfer
// consolidating outputs.
func (t Transaction) Fusion() bool {
	return t.Fee == 0 && !t.IsCoinbase
}

// IsInputUnlocked implements the dual height/timestamp unlock-time
// semantics from spec.md §4.C.
func IsInputUnlocked(unlockTime, currentHeight uint64, nowSeconds func() uint64) bool {
	if unlockTime == 0 {
		return true
	}
	if unlockTime < UnlockTimeAsBlockHeightThreshold {
		return currentHeight >= unlockTime
	}
	return nowSeconds() >= unlockTime
}
