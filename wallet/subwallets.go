package wallet

import (
	"github.com/turtlecoin/walletd-sync/build"
	"github.com/turtlecoin/walletd-sync/modules"
)

// SubWallets is the whole-wallet aggregate: every SubWallet, confirmed and
// locked transactions, tx-private-keys, and the view key. Per spec.md §9 it
// is laid out as an arena (subWallets []*SubWallet) plus an index map, so
// SubWallet never needs a back-pointer and every cross-subwallet operation
// lives here.
type SubWallets struct {
	subWallets     []*SubWallet
	index          map[modules.PublicSpendKey]int
	publicSpendKeys []modules.PublicSpendKey // preserves creation order; [0] is primary

	confirmedTxs []modules.Transaction
	lockedTxs    []modules.Transaction
	confirmedByHash map[modules.TxHash]int
	lockedByHash    map[modules.TxHash]int

	privateViewKey modules.PrivateViewKey
	txPrivateKeys  map[modules.TxHash][]byte
	isViewWallet   bool
}

// NewSubWallets constructs an empty aggregate for the given view key.
func NewSubWallets(privateViewKey modules.PrivateViewKey, isViewWallet bool) *SubWallets {
	return &SubWallets{
		index:           make(map[modules.PublicSpendKey]int),
		confirmedByHash: make(map[modules.TxHash]int),
		lockedByHash:    make(map[modules.TxHash]int),
		privateViewKey:  privateViewKey,
		txPrivateKeys:   make(map[modules.TxHash][]byte),
		isViewWallet:    isViewWallet,
	}
}

// PrivateViewKey returns the wallet-wide view key.
func (sw *SubWallets) PrivateViewKey() modules.PrivateViewKey { return sw.privateViewKey }

// IsViewWallet reports whether this wallet holds no private spend keys at
// all.
func (sw *SubWallets) IsViewWallet() bool { return sw.isViewWallet }

// AddSubWallet registers a new subwallet. It is a programmer error to
// register the same public spend key twice.
func (sw *SubWallets) AddSubWallet(s *SubWallet) {
	if _, exists := sw.index[s.PublicSpendKey]; exists {
		build.Critical("duplicate subwallet added", s.PublicSpendKey)
		return
	}
	sw.index[s.PublicSpendKey] = len(sw.subWallets)
	sw.subWallets = append(sw.subWallets, s)
	sw.publicSpendKeys = append(sw.publicSpendKeys, s.PublicSpendKey)
}

// GetSubWallet returns the subwallet for a known public spend key.
func (sw *SubWallets) GetSubWallet(pub modules.PublicSpendKey) (*SubWallet, bool) {
	i, ok := sw.index[pub]
	if !ok {
		return nil, false
	}
	return sw.subWallets[i], true
}

// GetPrimarySubWallet returns the first-created subwallet. Its absence is a
// programmer error - spec.md §4.D.
func (sw *SubWallets) GetPrimarySubWallet() *SubWallet {
	if len(sw.subWallets) == 0 {
		build.Critical("GetPrimarySubWallet called with no subwallets registered")
		return nil
	}
	return sw.subWallets[0]
}

// resolveSubset maps an optional subset of public spend keys to the full
// set of known keys; an unknown key in subset is fatal per spec.md §4.D.
func (sw *SubWallets) resolveSubset(subset []modules.PublicSpendKey) []modules.PublicSpendKey {
	if subset == nil {
		return sw.publicSpendKeys
	}
	for _, k := range subset {
		if _, ok := sw.index[k]; !ok {
			build.Critical("unknown public spend key in subset", k)
		}
	}
	return subset
}

// GetBalance sums per-subwallet balances over subset, or every subwallet if
// subset is nil.
func (sw *SubWallets) GetBalance(currentHeight uint64, subset []modules.PublicSpendKey) (unlocked, locked uint64) {
	for _, k := range sw.resolveSubset(subset) {
		s, ok := sw.GetSubWallet(k)
		if !ok {
			continue
		}
		u, l := s.GetBalance(currentHeight)
		unlocked += u
		locked += l
	}
	return
}

// GetKeyImageOwner is O(n_subwallets); view wallets always report not
// found, since they never store real key images.
func (sw *SubWallets) GetKeyImageOwner(ki modules.KeyImage) (found bool, owner modules.PublicSpendKey) {
	if sw.isViewWallet {
		return false, modules.PublicSpendKey{}
	}
	for _, s := range sw.subWallets {
		if s.HasKeyImage(ki) {
			return true, s.PublicSpendKey
		}
	}
	return false, modules.PublicSpendKey{}
}

// StoreInput stores a received input under the subwallet owning pub.
// Passing an unknown public spend key is a programmer error.
func (sw *SubWallets) StoreInput(pub modules.PublicSpendKey, input modules.ReceivedInput) {
	s, ok := sw.GetSubWallet(pub)
	if !ok {
		build.Critical("StoreInput: unknown public spend key", pub)
		return
	}
	s.StoreInput(input)
}

// MarkInputAsSpent marks the given key image spent under the subwallet
// owning pub. Passing an unknown public spend key is a programmer error -
// spec.md §4.D.
func (sw *SubWallets) MarkInputAsSpent(pub modules.PublicSpendKey, keyImage modules.KeyImage, spendHeight uint64) error {
	s, ok := sw.GetSubWallet(pub)
	if !ok {
		build.Critical("MarkInputAsSpent: unknown public spend key", pub)
		return nil
	}
	return s.MarkInputAsSpent(keyImage, spendHeight)
}

// AddTransaction appends tx to confirmedTxs. Any locked tx sharing tx.Hash
// is first removed (send promoted from locked to confirmed). Adding a
// confirmed transaction whose hash already exists is a programmer error -
// spec.md §4.D, testable property 1.
func (sw *SubWallets) AddTransaction(tx modules.Transaction) error {
	if i, ok := sw.lockedByHash[tx.Hash]; ok {
		sw.removeLockedAt(i)
	}
	if _, ok := sw.confirmedByHash[tx.Hash]; ok {
		build.Critical("AddTransaction: duplicate confirmed transaction", tx.Hash)
		return nil
	}
	for pub := range tx.Transfers {
		if _, ok := sw.index[pub]; !ok {
			build.Critical("AddTransaction: transfer references unknown public spend key", pub)
		}
	}
	sw.confirmedByHash[tx.Hash] = len(sw.confirmedTxs)
	sw.confirmedTxs = append(sw.confirmedTxs, tx)
	return nil
}

// AddLockedTransaction records a not-yet-confirmed, locally-issued send.
func (sw *SubWallets) AddLockedTransaction(tx modules.Transaction) {
	if _, ok := sw.confirmedByHash[tx.Hash]; ok {
		return
	}
	if i, ok := sw.lockedByHash[tx.Hash]; ok {
		sw.lockedTxs[i] = tx
		return
	}
	sw.lockedByHash[tx.Hash] = len(sw.lockedTxs)
	sw.lockedTxs = append(sw.lockedTxs, tx)
}

func (sw *SubWallets) removeLockedAt(i int) {
	hash := sw.lockedTxs[i].Hash
	sw.lockedTxs = append(sw.lockedTxs[:i], sw.lockedTxs[i+1:]...)
	delete(sw.lockedByHash, hash)
	for h, idx := range sw.lockedByHash {
		if idx > i {
			sw.lockedByHash[h] = idx - 1
		}
	}
}

// RemoveCancelledTransaction removes hash from lockedTxs and calls every
// subwallet's cancellation hook - spec.md §4.D.
func (sw *SubWallets) RemoveCancelledTransaction(hash modules.TxHash) {
	if i, ok := sw.lockedByHash[hash]; ok {
		sw.removeLockedAt(i)
	}
	for _, s := range sw.subWallets {
		s.addCancelledHook(hash)
	}
}

// RemoveForkedTransactions drops confirmed transactions with
// blockHeight >= fork and reorgs every subwallet's inputs accordingly.
// Locked transactions are untouched - spec.md §4.D, testable property 3.
func (sw *SubWallets) RemoveForkedTransactions(fork uint64) {
	kept := sw.confirmedTxs[:0]
	newIndex := make(map[modules.TxHash]int, len(sw.confirmedByHash))
	for _, tx := range sw.confirmedTxs {
		if tx.BlockHeight >= fork {
			delete(sw.confirmedByHash, tx.Hash)
			continue
		}
		newIndex[tx.Hash] = len(kept)
		kept = append(kept, tx)
	}
	sw.confirmedTxs = kept
	sw.confirmedByHash = newIndex

	for _, s := range sw.subWallets {
		s.RemoveForkedTransactions(fork)
	}
}

// ConfirmedTransactions returns every confirmed transaction.
func (sw *SubWallets) ConfirmedTransactions() []modules.Transaction { return sw.confirmedTxs }

// LockedTransactions returns every locked (unconfirmed) transaction.
func (sw *SubWallets) LockedTransactions() []modules.Transaction { return sw.lockedTxs }

// SetTxPrivateKey records the locally-known private key for a transaction
// this wallet sent, so it can be recovered/audited later.
func (sw *SubWallets) SetTxPrivateKey(hash modules.TxHash, key []byte) {
	sw.txPrivateKeys[hash] = key
}

// PublicSpendKeys returns the ordered list of known public spend keys;
// element 0 is the primary subwallet.
func (sw *SubWallets) PublicSpendKeys() []modules.PublicSpendKey { return sw.publicSpendKeys }

// Clone returns a deep copy of sw, including every unexported map and
// slice. MainLoop.applyBlock snapshots with this before applying a block so
// a failure partway through can be rolled back atomically - spec.md §4.G.
// copystructure.Copy is deliberately not used here: it walks only exported
// struct fields, and every field carrying this aggregate's actual state
// (index, publicSpendKeys, confirmedByHash, lockedByHash, txPrivateKeys,
// and each SubWallet's keyImages) is unexported.
func (sw *SubWallets) Clone() *SubWallets {
	out := &SubWallets{
		index:           make(map[modules.PublicSpendKey]int, len(sw.index)),
		publicSpendKeys: append([]modules.PublicSpendKey(nil), sw.publicSpendKeys...),
		confirmedTxs:    append([]modules.Transaction(nil), sw.confirmedTxs...),
		lockedTxs:       append([]modules.Transaction(nil), sw.lockedTxs...),
		confirmedByHash: make(map[modules.TxHash]int, len(sw.confirmedByHash)),
		lockedByHash:    make(map[modules.TxHash]int, len(sw.lockedByHash)),
		privateViewKey:  sw.privateViewKey,
		txPrivateKeys:   make(map[modules.TxHash][]byte, len(sw.txPrivateKeys)),
		isViewWallet:    sw.isViewWallet,
	}
	for k, v := range sw.index {
		out.index[k] = v
	}
	for k, v := range sw.confirmedByHash {
		out.confirmedByHash[k] = v
	}
	for k, v := range sw.lockedByHash {
		out.lockedByHash[k] = v
	}
	for k, v := range sw.txPrivateKeys {
		out.txPrivateKeys[k] = append([]byte(nil), v...)
	}
	out.subWallets = make([]*SubWallet, len(sw.subWallets))
	for i, s := range sw.subWallets {
		out.subWallets[i] = s.clone()
	}
	return out
}

// Restore replaces sw's contents in place with snapshot's, the way a
// pointer-swap rollback would, without invalidating any outstanding
// *SubWallets reference held elsewhere (MainLoop, Backend).
func (sw *SubWallets) Restore(snapshot *SubWallets) {
	*sw = *snapshot
}
