// Package wallet implements the wallet synchronization and
// output-discovery engine: SubWallet/SubWallets, SynchronizationStatus, the
// Synchronizer that turns a block into applyable deltas, and the MainLoop
// and Backend facade that drive them. It consumes modules.CryptoOps and
// modules.DaemonClient, never implementing either.
package wallet

import (
	"time"

	"github.com/turtlecoin/walletd-sync/modules"
)

// SubWallet is a per-spend-key store of received outputs, spent-state, and
// unconfirmed change, mirroring the teacher's per-seed key tracking in
// modules/wallet/wallet.go but scoped to a single (publicSpendKey,
// privateSpendKey?) pair. It holds no back-pointer to its owning SubWallets;
// per spec.md §9 operations that span the aggregate live only there.
type SubWallet struct {
	Address            string
	PublicSpendKey     modules.PublicSpendKey
	PrivateSpendKey    modules.PrivateSpendKey // zero value => view-only
	ScanHeight         uint64
	CreationTimestamp  uint64
	Inputs             []modules.ReceivedInput
	LockedInputs       []modules.UnconfirmedInput
	keyImages          map[modules.KeyImage]struct{}
}

// NewSubWallet constructs an empty SubWallet for the given address/keys.
func NewSubWallet(address string, pub modules.PublicSpendKey, priv modules.PrivateSpendKey, scanHeight, creationTimestamp uint64) *SubWallet {
	return &SubWallet{
		Address:           address,
		PublicSpendKey:    pub,
		PrivateSpendKey:   priv,
		ScanHeight:        scanHeight,
		CreationTimestamp: creationTimestamp,
		keyImages:         make(map[modules.KeyImage]struct{}),
	}
}

// IsViewOnly reports whether this subwallet lacks a private spend key.
func (s *SubWallet) IsViewOnly() bool {
	return s.PrivateSpendKey.IsZero()
}

// StoreInput appends a received input. The caller guarantees no duplicate
// (parentTxHash, transactionIndex) pair is stored twice.
func (s *SubWallet) StoreInput(input modules.ReceivedInput) {
	s.Inputs = append(s.Inputs, input)
	if !s.IsViewOnly() {
		s.keyImages[input.KeyImage] = struct{}{}
	}
}

// MarkInputAsSpent finds the unique input with the given key image and sets
// its spend height. Fails if no such input is stored.
func (s *SubWallet) MarkInputAsSpent(keyImage modules.KeyImage, spendHeight uint64) error {
	for i := range s.Inputs {
		if s.Inputs[i].KeyImage == keyImage {
			s.Inputs[i].SpendHeight = spendHeight
			return nil
		}
	}
	return modules.NewError(modules.InvalidKey, nil)
}

// GetBalance sums unspent inputs, partitioned by lock state at
// currentHeight.
func (s *SubWallet) GetBalance(currentHeight uint64) (unlocked, locked uint64) {
	for _, in := range s.Inputs {
		if !in.Unspent() {
			continue
		}
		if modules.IsInputUnlocked(in.UnlockTime, currentHeight, nowSeconds) {
			unlocked += in.Amount
		} else {
			locked += in.Amount
		}
	}
	return
}

// RemoveForkedTransactions drops every input introduced at or after
// forkHeight, and re-opens (spendHeight = 0) any input whose recorded spend
// happened at or after forkHeight - spec.md §4.C / testable property 3.
func (s *SubWallet) RemoveForkedTransactions(forkHeight uint64) {
	kept := s.Inputs[:0]
	for _, in := range s.Inputs {
		if in.BlockHeight >= forkHeight {
			delete(s.keyImages, in.KeyImage)
			continue
		}
		if in.SpendHeight >= forkHeight {
			in.SpendHeight = 0
		}
		kept = append(kept, in)
	}
	s.Inputs = kept
}

// RemoveCancelledTransaction drops locked unconfirmed inputs whose
// parentTxHash matches hash.
func (s *SubWallet) RemoveCancelledTransaction(hash modules.TxHash) {
	kept := s.LockedInputs[:0]
	for _, in := range s.LockedInputs {
		if in.ParentTxHash != hash {
			kept = append(kept, in)
		}
	}
	s.LockedInputs = kept
}

// ConvertSyncTimestampToHeight replaces the subwallet's creationTimestamp
// with 0 and sets ScanHeight to h, if the subwallet was created at ts - so
// later sync decisions use height instead of a timestamp that no longer
// resolves unambiguously to a height.
func (s *SubWallet) ConvertSyncTimestampToHeight(ts, h uint64) {
	if s.CreationTimestamp == ts {
		s.CreationTimestamp = 0
		s.ScanHeight = h
	}
}

// HasKeyImage reports set membership - O(1).
func (s *SubWallet) HasKeyImage(k modules.KeyImage) bool {
	_, ok := s.keyImages[k]
	return ok
}

// GetTxInputKeyImage delegates to CryptoOps using this subwallet's private
// spend key. View wallets return an all-zero key image rather than calling
// through, matching spec.md §4.C.
func (s *SubWallet) GetTxInputKeyImage(ops modules.CryptoOps, derivation modules.Derivation, outputIndex int) (modules.KeyImage, error) {
	if s.IsViewOnly() {
		return modules.KeyImage{}, nil
	}
	return ops.GenerateKeyImage(s.PublicSpendKey, s.PrivateSpendKey, derivation, outputIndex)
}

// clone returns a deep copy, used by SubWallets.Clone to build an
// independent rollback snapshot before a block is applied.
func (s *SubWallet) clone() *SubWallet {
	out := *s
	out.Inputs = append([]modules.ReceivedInput(nil), s.Inputs...)
	out.LockedInputs = append([]modules.UnconfirmedInput(nil), s.LockedInputs...)
	out.keyImages = make(map[modules.KeyImage]struct{}, len(s.keyImages))
	for k := range s.keyImages {
		out.keyImages[k] = struct{}{}
	}
	return &out
}

// addCancelledHook exists purely so SubWallets can invoke every subwallet's
// cancellation path uniformly; kept as a thin named method rather than
// inlining RemoveCancelledTransaction calls at the call site, matching how
// the teacher keeps per-key bookkeeping behind named SubWallet methods.
func (s *SubWallet) addCancelledHook(hash modules.TxHash) {
	s.RemoveCancelledTransaction(hash)
}

// nowSeconds is overridden in tests to make unlock-time-as-timestamp
// decisions deterministic; production code always uses wall-clock time.
var nowSeconds = func() uint64 { return uint64(time.Now().Unix()) }
