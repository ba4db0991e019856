package wallet

import (
	"encoding/json"
	"testing"

	"github.com/turtlecoin/walletd-sync/modules"
)

func TestWalletJSONRoundTrip(t *testing.T) {
	daemon := &fakeDaemonClient{}
	cfg := modules.DefaultConfig()
	b, err := ImportFromKeys(fakeCryptoOps{}, daemon, cfg, nil, "addr",
		modules.PublicSpendKey(hashFromByte(1)),
		modules.PrivateSpendKey(hashFromByte(2)),
		modules.PrivateViewKey(hashFromByte(3)),
		100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pub, _, _ := b.GetSpendKeys("addr")
	b.subWallets.StoreInput(pub, modules.ReceivedInput{
		KeyImage:          modules.KeyImage(hashFromByte(9)),
		Amount:            500,
		BlockHeight:       10,
		TxPublicKey:       modules.TxPublicKey(hashFromByte(11)),
		TransactionIndex:  0,
		GlobalOutputIndex: 42,
		Key:               hashFromByte(12),
		UnlockTime:        0,
		ParentTxHash:      modules.TxHash(hashFromByte(13)),
	})
	txHash := modules.TxHash(hashFromByte(20))
	if err := b.subWallets.AddTransaction(modules.Transaction{
		Hash:        txHash,
		Fee:         5,
		BlockHeight: 10,
		Timestamp:   1000,
		UnlockTime:  0,
		Transfers:   map[modules.PublicSpendKey]int64{pub: 500},
	}); err != nil {
		t.Fatalf("unexpected error adding transaction: %v", err)
	}
	b.subWallets.SetTxPrivateKey(txHash, []byte{1, 2, 3, 4})
	b.syncStatus.StoreBlockHash(10, modules.Hash(hashFromByte(10)))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	restored := &Backend{ops: fakeCryptoOps{}, daemon: daemon, cfg: cfg, bus: NewEventBus()}
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}

	restoredPub, _, err := restored.GetSpendKeys("addr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restoredPub != pub {
		t.Fatal("expected public spend key to round-trip")
	}

	sub, ok := restored.subWallets.GetSubWallet(restoredPub)
	if !ok {
		t.Fatal("expected subwallet to round-trip")
	}
	if len(sub.Inputs) != 1 || sub.Inputs[0].Amount != 500 {
		t.Fatalf("expected 1 input of amount 500 to round-trip, got %+v", sub.Inputs)
	}
	if !sub.HasKeyImage(modules.KeyImage(hashFromByte(9))) {
		t.Fatal("expected key image set to round-trip")
	}

	if len(restored.subWallets.ConfirmedTransactions()) != 1 {
		t.Fatal("expected confirmed transaction to round-trip")
	}
	if restored.subWallets.ConfirmedTransactions()[0].Transfers[restoredPub] != 500 {
		t.Fatal("expected transfer amounts to round-trip")
	}

	if got := restored.subWallets.txPrivateKeys[txHash]; len(got) != 4 {
		t.Fatalf("expected tx private key to round-trip, got %v", got)
	}

	if restored.syncStatus.LastKnownBlockHeight() != 10 {
		t.Fatalf("expected synchronization status height to round-trip, got %d", restored.syncStatus.LastKnownBlockHeight())
	}
}

func TestWalletJSONRejectsUnknownFormatVersion(t *testing.T) {
	b := &Backend{ops: fakeCryptoOps{}, daemon: &fakeDaemonClient{}, cfg: modules.DefaultConfig(), bus: NewEventBus()}
	err := json.Unmarshal([]byte(`{"walletFileFormatVersion": 99, "subWallets": {}, "synchronizationStatus": {}}`), b)
	if !modules.Is(err, modules.InvalidKey) {
		t.Fatalf("expected InvalidKey error for unsupported format version, got %v", err)
	}
}
