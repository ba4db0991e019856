package wallet

import (
	"testing"

	"github.com/turtlecoin/walletd-sync/modules"
)

func testSubWallet() *SubWallet {
	pub := modules.PublicSpendKey(hashFromByte(1))
	priv := modules.PrivateSpendKey(hashFromByte(2))
	return NewSubWallet("fakeaddr", pub, priv, 0, 0)
}

func TestSubWalletStoreInputTracksKeyImage(t *testing.T) {
	s := testSubWallet()
	ki := modules.KeyImage(hashFromByte(9))
	s.StoreInput(modules.ReceivedInput{KeyImage: ki, Amount: 100})

	if !s.HasKeyImage(ki) {
		t.Fatal("expected key image to be tracked after StoreInput")
	}
	if len(s.Inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(s.Inputs))
	}
}

func TestSubWalletViewOnlyDoesNotTrackKeyImages(t *testing.T) {
	pub := modules.PublicSpendKey(hashFromByte(1))
	s := NewSubWallet("fakeaddr", pub, modules.PrivateSpendKey{}, 0, 0)
	ki := modules.KeyImage(hashFromByte(9))
	s.StoreInput(modules.ReceivedInput{KeyImage: ki, Amount: 100})

	if s.HasKeyImage(ki) {
		t.Fatal("view-only subwallet must not track key images")
	}
	if !s.IsViewOnly() {
		t.Fatal("expected IsViewOnly true for zero private spend key")
	}
}

func TestSubWalletMarkInputAsSpent(t *testing.T) {
	s := testSubWallet()
	ki := modules.KeyImage(hashFromByte(9))
	s.StoreInput(modules.ReceivedInput{KeyImage: ki, Amount: 100})

	if err := s.MarkInputAsSpent(ki, 42); err != nil {
		t.Fatalf("unexpected error marking input spent: %v", err)
	}
	if s.Inputs[0].Unspent() {
		t.Fatal("expected input to be spent")
	}
	if s.Inputs[0].SpendHeight != 42 {
		t.Fatalf("expected spend height 42, got %d", s.Inputs[0].SpendHeight)
	}
}

func TestSubWalletMarkInputAsSpentUnknown(t *testing.T) {
	s := testSubWallet()
	err := s.MarkInputAsSpent(modules.KeyImage(hashFromByte(9)), 1)
	if !modules.Is(err, modules.InvalidKey) {
		t.Fatalf("expected InvalidKey error, got %v", err)
	}
}

func TestSubWalletGetBalancePartitionsByUnlockTime(t *testing.T) {
	s := testSubWallet()
	s.StoreInput(modules.ReceivedInput{KeyImage: modules.KeyImage(hashFromByte(1)), Amount: 10, UnlockTime: 0})
	s.StoreInput(modules.ReceivedInput{KeyImage: modules.KeyImage(hashFromByte(2)), Amount: 20, UnlockTime: 100})
	s.StoreInput(modules.ReceivedInput{KeyImage: modules.KeyImage(hashFromByte(3)), Amount: 30, UnlockTime: 50, SpendHeight: 5})

	unlocked, locked := s.GetBalance(60)
	if unlocked != 10 {
		t.Fatalf("expected 10 unlocked, got %d", unlocked)
	}
	if locked != 20 {
		t.Fatalf("expected 20 locked, got %d", locked)
	}
}

func TestSubWalletRemoveForkedTransactions(t *testing.T) {
	s := testSubWallet()
	ki1 := modules.KeyImage(hashFromByte(1))
	ki2 := modules.KeyImage(hashFromByte(2))
	s.StoreInput(modules.ReceivedInput{KeyImage: ki1, Amount: 10, BlockHeight: 5})
	s.StoreInput(modules.ReceivedInput{KeyImage: ki2, Amount: 20, BlockHeight: 10, SpendHeight: 12})

	s.RemoveForkedTransactions(10)

	if len(s.Inputs) != 1 {
		t.Fatalf("expected 1 surviving input, got %d", len(s.Inputs))
	}
	if s.Inputs[0].KeyImage != ki1 {
		t.Fatal("expected the height-5 input to survive a fork at height 10")
	}
	if s.HasKeyImage(ki2) {
		t.Fatal("forked-away input's key image must be forgotten")
	}
}

func TestSubWalletRemoveForkedTransactionsReopensSpend(t *testing.T) {
	s := testSubWallet()
	ki := modules.KeyImage(hashFromByte(1))
	s.StoreInput(modules.ReceivedInput{KeyImage: ki, Amount: 10, BlockHeight: 1, SpendHeight: 20})

	s.RemoveForkedTransactions(20)

	if len(s.Inputs) != 1 {
		t.Fatalf("expected input to survive since it was received before the fork, got %d", len(s.Inputs))
	}
	if !s.Inputs[0].Unspent() {
		t.Fatal("expected the forked-away spend to be reopened")
	}
}

func TestSubWalletConvertSyncTimestampToHeight(t *testing.T) {
	s := testSubWallet()
	s.CreationTimestamp = 1234
	s.ConvertSyncTimestampToHeight(1234, 500)

	if s.CreationTimestamp != 0 {
		t.Fatalf("expected creation timestamp cleared, got %d", s.CreationTimestamp)
	}
	if s.ScanHeight != 500 {
		t.Fatalf("expected scan height 500, got %d", s.ScanHeight)
	}
}

func TestSubWalletConvertSyncTimestampToHeightMismatch(t *testing.T) {
	s := testSubWallet()
	s.CreationTimestamp = 1234
	s.ConvertSyncTimestampToHeight(9999, 500)

	if s.CreationTimestamp != 1234 {
		t.Fatal("expected creation timestamp untouched when ts does not match")
	}
}

func TestSubWalletGetTxInputKeyImageViewOnly(t *testing.T) {
	pub := modules.PublicSpendKey(hashFromByte(1))
	s := NewSubWallet("fakeaddr", pub, modules.PrivateSpendKey{}, 0, 0)
	ki, err := s.GetTxInputKeyImage(fakeCryptoOps{}, modules.Derivation{}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ki != (modules.KeyImage{}) {
		t.Fatal("expected zero key image for view-only subwallet")
	}
}
