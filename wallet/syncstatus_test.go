package wallet

import (
	"testing"

	"github.com/turtlecoin/walletd-sync/modules"
)

func testSyncStatusConfig() modules.Config {
	cfg := modules.DefaultConfig()
	cfg.LastKnownBlockHashesSize = 3
	cfg.BlockHashCheckpointsInterval = 5
	cfg.MaxBlockHashCheckpoints = 2
	return cfg
}

func TestSynchronizationStatusStoreBlockHashRollsWindow(t *testing.T) {
	s := NewSynchronizationStatus(0, 0, testSyncStatusConfig())
	for h := uint64(1); h <= 5; h++ {
		s.StoreBlockHash(h, modules.Hash(hashFromByte(byte(h))))
	}

	if len(s.lastKnownBlockHashes) != 3 {
		t.Fatalf("expected dense window capped at 3, got %d", len(s.lastKnownBlockHashes))
	}
	if s.lastKnownBlockHashes[0] != modules.Hash(hashFromByte(5)) {
		t.Fatal("expected newest hash first")
	}
	if s.LastKnownBlockHeight() != 5 {
		t.Fatalf("expected height 5, got %d", s.LastKnownBlockHeight())
	}
}

func TestSynchronizationStatusCheckpointStride(t *testing.T) {
	s := NewSynchronizationStatus(0, 0, testSyncStatusConfig())
	s.StoreBlockHash(5, modules.Hash(hashFromByte(5)))
	s.StoreBlockHash(10, modules.Hash(hashFromByte(10)))
	s.StoreBlockHash(11, modules.Hash(hashFromByte(11)))

	if len(s.blockHashCheckpoints) != 2 {
		t.Fatalf("expected 2 checkpoints at heights 5 and 10, got %d", len(s.blockHashCheckpoints))
	}
	if s.blockHashCheckpoints[0] != modules.Hash(hashFromByte(10)) {
		t.Fatal("expected newest checkpoint first")
	}
}

func TestSynchronizationStatusGetBlockCheckpointsOrder(t *testing.T) {
	s := NewSynchronizationStatus(0, 0, testSyncStatusConfig())
	s.StoreBlockHash(5, modules.Hash(hashFromByte(5)))
	s.StoreBlockHash(6, modules.Hash(hashFromByte(6)))

	cp := s.GetBlockCheckpoints()
	if len(cp) != 3 {
		t.Fatalf("expected 1 sparse + 2 dense entries, got %d", len(cp))
	}
	if cp[0] != modules.Hash(hashFromByte(5)) {
		t.Fatal("expected sparse checkpoints to come first")
	}
}

func TestSynchronizationStatusReset(t *testing.T) {
	s := NewSynchronizationStatus(0, 0, testSyncStatusConfig())
	s.StoreBlockHash(5, modules.Hash(hashFromByte(5)))
	s.StoreBlockHash(10, modules.Hash(hashFromByte(10)))

	s.Reset(4, modules.Hash(hashFromByte(4)))

	if s.LastKnownBlockHeight() != 4 {
		t.Fatalf("expected height reset to 4, got %d", s.LastKnownBlockHeight())
	}
	if len(s.blockHashCheckpoints) != 0 {
		t.Fatal("expected checkpoints cleared after reset")
	}
	if len(s.lastKnownBlockHashes) != 1 || s.lastKnownBlockHashes[0] != modules.Hash(hashFromByte(4)) {
		t.Fatal("expected dense window reseeded with the surviving hash")
	}
}

func TestSynchronizationStatusStartFields(t *testing.T) {
	s := NewSynchronizationStatus(123, 456, testSyncStatusConfig())
	if s.StartHeight() != 123 || s.StartTimestamp() != 456 {
		t.Fatal("expected start height/timestamp preserved from construction")
	}
}
