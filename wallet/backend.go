package wallet

import (
	"context"
	"encoding/json"
	"os"

	"github.com/mitchellh/copystructure"
	"github.com/otiai10/copy"

	"github.com/turtlecoin/walletd-sync/modules"
	"github.com/turtlecoin/walletd-sync/persist"
)

// Backend is the concrete modules.WalletBackend: it owns the SubWallets
// aggregate, the SynchronizationStatus, the Synchronizer, the MainLoop that
// drives them against a daemon, and the EventBus handlers subscribe to -
// spec.md §4.H. Construct one with NewWallet, ImportFromSeed,
// ImportFromKeys, ImportViewWallet, or OpenFromFile; never build one by hand.
type Backend struct {
	ops    modules.CryptoOps
	daemon modules.DaemonClient
	cfg    modules.Config

	subWallets *SubWallets
	syncStatus *SynchronizationStatus
	sync       *Synchronizer
	loop       *MainLoop
	bus        *EventBus
	log        *persist.Logger

	filePath string
}

// newBackend wires the pieces shared by every construction path, anchoring
// SynchronizationStatus at (scanHeight, scanTimestamp).
func newBackend(ops modules.CryptoOps, daemon modules.DaemonClient, cfg modules.Config, log *persist.Logger, privateViewKey modules.PrivateViewKey, isViewWallet bool, scanHeight, scanTimestamp uint64) (*Backend, error) {
	b := &Backend{
		ops:    ops,
		daemon: daemon,
		cfg:    cfg,
		log:    log,
		bus:    NewEventBus(),
	}
	b.subWallets = NewSubWallets(privateViewKey, isViewWallet)
	b.syncStatus = NewSynchronizationStatus(scanHeight, scanTimestamp, cfg)
	b.sync = NewSynchronizer(ops, b.subWallets, cfg, log)

	loop, err := NewMainLoop(daemon, b.subWallets, b.syncStatus, b.sync, cfg, b.bus, log, b.lockedTransactionHashes)
	if err != nil {
		return nil, err
	}
	b.loop = loop
	return b, nil
}

func (b *Backend) lockedTransactionHashes() []modules.TxHash {
	locked := b.subWallets.LockedTransactions()
	hashes := make([]modules.TxHash, len(locked))
	for i, tx := range locked {
		hashes[i] = tx.Hash
	}
	return hashes
}

// NewWallet creates a brand-new primary subwallet from a freshly generated
// mnemonic seed, scanning from the caller-supplied scanHeight - spec.md §4.H
// "create". The creation timestamp is left at 0, so the scan start is never
// derived from the current time.
func NewWallet(ops modules.CryptoOps, daemon modules.DaemonClient, cfg modules.Config, log *persist.Logger, address string, scanHeight uint64) (*Backend, string, error) {
	mnemonic, pub, priv, view, err := ops.GenerateMnemonic()
	if err != nil {
		return nil, "", err
	}
	b, err := newBackend(ops, daemon, cfg, log, view, false, scanHeight, 0)
	if err != nil {
		return nil, "", err
	}
	b.subWallets.AddSubWallet(NewSubWallet(address, pub, priv, scanHeight, 0))
	return b, mnemonic, nil
}

// ImportFromSeed rebuilds a wallet deterministically from a previously
// generated mnemonic phrase, scanning from scanHeight - spec.md §4.H
// "importWalletFromSeed".
func ImportFromSeed(ops modules.CryptoOps, daemon modules.DaemonClient, cfg modules.Config, log *persist.Logger, mnemonic, address string, scanHeight uint64) (*Backend, error) {
	pub, priv, view, err := ops.GenerateKeyPairFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(ops, daemon, cfg, log, view, false, scanHeight, 0)
	if err != nil {
		return nil, err
	}
	b.subWallets.AddSubWallet(NewSubWallet(address, pub, priv, scanHeight, 0))
	return b, nil
}

// ImportFromKeys rebuilds a wallet from an arbitrary (publicSpendKey,
// privateSpendKey, privateViewKey) triple, which need not have come from a
// mnemonic - spec.md §4.H "importWalletFromKeys".
func ImportFromKeys(ops modules.CryptoOps, daemon modules.DaemonClient, cfg modules.Config, log *persist.Logger, address string, pub modules.PublicSpendKey, priv modules.PrivateSpendKey, view modules.PrivateViewKey, scanHeight uint64) (*Backend, error) {
	b, err := newBackend(ops, daemon, cfg, log, view, false, scanHeight, 0)
	if err != nil {
		return nil, err
	}
	b.subWallets.AddSubWallet(NewSubWallet(address, pub, priv, scanHeight, 0))
	return b, nil
}

// ImportViewWallet builds a view-only wallet: it can recognize incoming
// outputs but never derive key images, so it never detects spends - spec.md
// §4.C / §4.H "importViewWallet".
func ImportViewWallet(ops modules.CryptoOps, daemon modules.DaemonClient, cfg modules.Config, log *persist.Logger, address string, pub modules.PublicSpendKey, view modules.PrivateViewKey, scanHeight uint64) (*Backend, error) {
	b, err := newBackend(ops, daemon, cfg, log, view, true, scanHeight, 0)
	if err != nil {
		return nil, err
	}
	b.subWallets.AddSubWallet(NewSubWallet(address, pub, modules.PrivateSpendKey{}, scanHeight, 0))
	return b, nil
}

// OpenFromFile loads a previously saved wallet file - spec.md §4.H
// "openWalletFromFile". ops/daemon/cfg/log are supplied fresh each run,
// matching how the teacher re-wires its consensus/gateway dependencies on
// every process start rather than persisting them.
func OpenFromFile(ops modules.CryptoOps, daemon modules.DaemonClient, cfg modules.Config, log *persist.Logger, path string) (*Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	b := &Backend{ops: ops, daemon: daemon, cfg: cfg, log: log, bus: NewEventBus(), filePath: path}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, err
	}
	b.sync = NewSynchronizer(ops, b.subWallets, cfg, log)

	loop, err := NewMainLoop(daemon, b.subWallets, b.syncStatus, b.sync, cfg, b.bus, log, b.lockedTransactionHashes)
	if err != nil {
		return nil, err
	}
	b.loop = loop
	return b, nil
}

// SaveToFile writes the wallet's current state to path as indented JSON. If
// a file already exists at path, it is first copied to path+".bak" so a
// crash mid-write never destroys the only copy - spec.md §9.
func (b *Backend) SaveToFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := copy.Copy(path, path+".bak"); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	b.filePath = path
	return nil
}

// Start launches the MainLoop - spec.md §4.G/§4.H.
func (b *Backend) Start() error { return b.loop.Start() }

// Stop halts the MainLoop. A stopped Backend cannot be started again: a
// later Start returns an error.
func (b *Backend) Stop() error { return b.loop.Stop() }

// Subscribe registers handler for every occurrence of name.
func (b *Backend) Subscribe(name modules.EventName, handler func(interface{})) func() {
	return b.bus.Subscribe(name, handler)
}

// GetSyncStatus reports the wallet's synced height alongside the daemon's
// self-reported height and the network's - spec.md §4.H.
func (b *Backend) GetSyncStatus() (walletHeight, daemonHeight, networkHeight uint64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.RequestTimeout)
	defer cancel()
	info, err := b.daemon.Info(ctx)
	if err != nil {
		return b.syncStatus.LastKnownBlockHeight(), 0, 0, err
	}
	return b.syncStatus.LastKnownBlockHeight(), info.Height, info.NetworkHeight, nil
}

// GetBalance sums unlocked/locked balance over subset (nil means every known
// subwallet), partitioned at the wallet's currently synced height.
func (b *Backend) GetBalance(subset []modules.PublicSpendKey) (unlocked, locked uint64, err error) {
	u, l := b.subWallets.GetBalance(b.syncStatus.LastKnownBlockHeight(), subset)
	return u, l, nil
}

// GetNodeFee reports the connected daemon's configured node fee, if any.
func (b *Backend) GetNodeFee() (address string, amount uint64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.RequestTimeout)
	defer cancel()
	fee, err := b.daemon.Fee(ctx)
	if err != nil {
		return "", 0, err
	}
	return fee.Address, fee.Amount, nil
}

// GetPrimaryAddress returns the address of the first-created subwallet.
func (b *Backend) GetPrimaryAddress() (string, error) {
	return b.subWallets.GetPrimarySubWallet().Address, nil
}

// GetSpendKeys returns the (public, private) spend keypair for address.
func (b *Backend) GetSpendKeys(address string) (pub modules.PublicSpendKey, priv modules.PrivateSpendKey, err error) {
	s, ok := b.subWalletByAddress(address)
	if !ok {
		return pub, priv, modules.NewError(modules.AddressNotInWallet, nil)
	}
	return s.PublicSpendKey, s.PrivateSpendKey, nil
}

// GetMnemonicSeed recovers the mnemonic phrase for address's private spend
// key, failing if that subwallet's view key was not itself derived from a
// mnemonic (e.g. it was imported from independently generated keys) -
// spec.md §4.H.
func (b *Backend) GetMnemonicSeed(address string) (string, error) {
	s, ok := b.subWalletByAddress(address)
	if !ok {
		return "", modules.NewError(modules.AddressNotInWallet, nil)
	}
	if s.IsViewOnly() {
		return "", modules.NewError(modules.InvalidMnemonic, nil)
	}
	expectedView, err := b.ops.PrivateSpendKeyToViewKey(s.PrivateSpendKey)
	if err != nil {
		return "", err
	}
	if expectedView != b.subWallets.PrivateViewKey() {
		return "", modules.NewError(modules.InvalidMnemonic, nil)
	}
	return b.ops.PrivateSpendKeyToMnemonic(s.PrivateSpendKey)
}

// GetPrivateViewKey returns the wallet-wide view key.
func (b *Backend) GetPrivateViewKey() modules.PrivateViewKey {
	return b.subWallets.PrivateViewKey()
}

// UpdateConfig replaces the tunables MainLoop reads on its next tick
// (batch size, request timeout, queue high-water mark, ...).
// MainLoopInterval is read only when Start creates the ticker, so a changed
// interval does not affect a loop that is already running. cfg is defensively deep-copied
// with copystructure first - every Config field is exported, so unlike
// SubWallets this is exactly the case copystructure is built for - so a
// caller mutating its MixinLimits slice afterward cannot race the running
// MainLoop.
func (b *Backend) UpdateConfig(cfg modules.Config) error {
	copied, err := copystructure.Copy(cfg)
	if err != nil {
		return err
	}
	b.cfg = copied.(modules.Config)
	b.loop.cfg = b.cfg
	return nil
}

// Rescanning rewinds every subwallet to rescanHeight
// and drops state discovered since, so the next MainLoop tick rediscovers
// it from scratch - a supplemented operation beyond spec.md's distilled
// scope (§7 "Rescanning").
func (b *Backend) Rescanning(rescanHeight uint64) {
	b.subWallets.RemoveForkedTransactions(rescanHeight)
	b.syncStatus.Reset(rescanHeight, modules.Hash{})
}

// ExportSubWalletAddresses returns the address of every known subwallet, in
// creation order - a supplemented operation beyond spec.md's distilled
// scope (§7 "ExportSubWalletAddresses").
func (b *Backend) ExportSubWalletAddresses() []string {
	pubs := b.subWallets.PublicSpendKeys()
	out := make([]string, 0, len(pubs))
	for _, pub := range pubs {
		if s, ok := b.subWallets.GetSubWallet(pub); ok {
			out = append(out, s.Address)
		}
	}
	return out
}

var _ modules.WalletBackend = (*Backend)(nil)

func (b *Backend) subWalletByAddress(address string) (*SubWallet, bool) {
	for _, pub := range b.subWallets.PublicSpendKeys() {
		s, ok := b.subWallets.GetSubWallet(pub)
		if ok && s.Address == address {
			return s, true
		}
	}
	return nil, false
}
