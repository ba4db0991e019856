package wallet

import (
	"testing"

	"github.com/turtlecoin/walletd-sync/modules"
)

func testBackend(t *testing.T) *Backend {
	t.Helper()
	daemon := &fakeDaemonClient{}
	b, _, err := NewWallet(fakeCryptoOps{}, daemon, modules.DefaultConfig(), nil, "primaryaddr", 0)
	if err != nil {
		t.Fatalf("unexpected error constructing Backend: %v", err)
	}
	return b
}

func TestNewWalletReturnsUsableMnemonic(t *testing.T) {
	daemon := &fakeDaemonClient{}
	b, mnemonic, err := NewWallet(fakeCryptoOps{}, daemon, modules.DefaultConfig(), nil, "primaryaddr", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mnemonic == "" {
		t.Fatal("expected a non-empty mnemonic")
	}

	addr, err := b.GetPrimaryAddress()
	if err != nil || addr != "primaryaddr" {
		t.Fatalf("expected primary address 'primaryaddr', got %q err %v", addr, err)
	}

	recovered, err := b.GetMnemonicSeed("primaryaddr")
	if err != nil {
		t.Fatalf("unexpected error recovering mnemonic: %v", err)
	}
	if recovered != mnemonic {
		t.Fatalf("expected recovered mnemonic %q to match original %q", recovered, mnemonic)
	}
}

func TestImportFromSeedRoundTrip(t *testing.T) {
	daemon := &fakeDaemonClient{}
	original, mnemonic, err := NewWallet(fakeCryptoOps{}, daemon, modules.DefaultConfig(), nil, "addr", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	origPub, origPriv, err := original.GetSpendKeys("addr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	imported, err := ImportFromSeed(fakeCryptoOps{}, daemon, modules.DefaultConfig(), nil, mnemonic, "addr", 100)
	if err != nil {
		t.Fatalf("unexpected error importing from seed: %v", err)
	}
	pub, priv, err := imported.GetSpendKeys("addr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub != origPub || priv != origPriv {
		t.Fatal("expected importing from the same mnemonic to recover identical keys")
	}
}

func TestImportViewWalletCannotRecoverMnemonic(t *testing.T) {
	daemon := &fakeDaemonClient{}
	pub := modules.PublicSpendKey(hashFromByte(1))
	view := modules.PrivateViewKey(hashFromByte(2))
	b, err := ImportViewWallet(fakeCryptoOps{}, daemon, modules.DefaultConfig(), nil, "viewaddr", pub, view, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := b.GetMnemonicSeed("viewaddr"); err == nil {
		t.Fatal("expected view wallet to be unable to recover a mnemonic seed")
	}
}

func TestGetSpendKeysUnknownAddress(t *testing.T) {
	b := testBackend(t)
	if _, _, err := b.GetSpendKeys("nonexistent"); !modules.Is(err, modules.AddressNotInWallet) {
		t.Fatalf("expected AddressNotInWallet, got %v", err)
	}
}

func TestBackendGetBalance(t *testing.T) {
	b := testBackend(t)
	pub, _, err := b.GetSpendKeys("primaryaddr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.subWallets.StoreInput(pub, modules.ReceivedInput{KeyImage: modules.KeyImage(hashFromByte(3)), Amount: 42})

	unlocked, locked, err := b.GetBalance(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unlocked != 42 || locked != 0 {
		t.Fatalf("expected unlocked=42 locked=0, got unlocked=%d locked=%d", unlocked, locked)
	}
}

func TestBackendRescanning(t *testing.T) {
	b := testBackend(t)
	pub, _, _ := b.GetSpendKeys("primaryaddr")
	tx := modules.Transaction{Hash: modules.TxHash(hashFromByte(4)), BlockHeight: 50, Transfers: map[modules.PublicSpendKey]int64{pub: 10}}
	if err := b.subWallets.AddTransaction(tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.syncStatus.StoreBlockHash(50, modules.Hash(hashFromByte(50)))

	b.Rescanning(10)

	if len(b.subWallets.ConfirmedTransactions()) != 0 {
		t.Fatal("expected transactions at/after the rescan height to be dropped")
	}
	if b.syncStatus.LastKnownBlockHeight() != 10 {
		t.Fatalf("expected sync status rewound to height 10, got %d", b.syncStatus.LastKnownBlockHeight())
	}
}

func TestBackendExportSubWalletAddresses(t *testing.T) {
	b := testBackend(t)
	addrs := b.ExportSubWalletAddresses()
	if len(addrs) != 1 || addrs[0] != "primaryaddr" {
		t.Fatalf("expected exported addresses to be [\"primaryaddr\"], got %v", addrs)
	}
}

func TestBackendUpdateConfigIsolatesCaller(t *testing.T) {
	b := testBackend(t)
	cfg := modules.DefaultConfig()
	cfg.MixinLimits = []modules.MixinBand{{StartHeight: 0, Min: 1, Max: 3}}

	if err := b.UpdateConfig(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.MixinLimits[0].Max = 99

	if b.cfg.MixinLimits[0].Max != 3 {
		t.Fatalf("expected UpdateConfig to defensively copy MixinLimits, got %d", b.cfg.MixinLimits[0].Max)
	}
}
