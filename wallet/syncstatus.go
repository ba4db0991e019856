package wallet

import "github.com/turtlecoin/walletd-sync/modules"

// SynchronizationStatus holds a rolling window of recently-seen block
// hashes plus sparse long-range checkpoints, letting the daemon locate our
// resume point even across a deep reorg without the wallet keeping every
// hash it has ever seen - spec.md §4.E.
type SynchronizationStatus struct {
	lastKnownBlockHashes []modules.Hash // newest first, capped at sizeLimit
	blockHashCheckpoints []modules.Hash // prepended, capped at maxCheckpoints
	lastKnownBlockHeight uint64
	startHeight          uint64
	startTimestamp       uint64

	sizeLimit        int
	checkpointStride uint64
	maxCheckpoints   int
}

// NewSynchronizationStatus constructs a status anchored at the given start
// point, using the window sizes from modules.Config.
func NewSynchronizationStatus(startHeight, startTimestamp uint64, cfg modules.Config) *SynchronizationStatus {
	return &SynchronizationStatus{
		lastKnownBlockHeight: startHeight,
		startHeight:          startHeight,
		startTimestamp:       startTimestamp,
		sizeLimit:            cfg.LastKnownBlockHashesSize,
		checkpointStride:     cfg.BlockHashCheckpointsInterval,
		maxCheckpoints:       cfg.MaxBlockHashCheckpoints,
	}
}

// StoreBlockHash records hash as the newest seen block at height, rolling
// the dense window and, every checkpointStride blocks, the sparse
// checkpoint list - spec.md §4.E.
func (s *SynchronizationStatus) StoreBlockHash(height uint64, hash modules.Hash) {
	s.lastKnownBlockHashes = append([]modules.Hash{hash}, s.lastKnownBlockHashes...)
	if len(s.lastKnownBlockHashes) > s.sizeLimit {
		s.lastKnownBlockHashes = s.lastKnownBlockHashes[:s.sizeLimit]
	}

	if s.checkpointStride > 0 && height%s.checkpointStride == 0 {
		s.blockHashCheckpoints = append([]modules.Hash{hash}, s.blockHashCheckpoints...)
		if len(s.blockHashCheckpoints) > s.maxCheckpoints {
			s.blockHashCheckpoints = s.blockHashCheckpoints[:s.maxCheckpoints]
		}
	}

	s.lastKnownBlockHeight = height
}

// GetBlockCheckpoints returns the sparse checkpoints followed by the full
// dense tail, duplicates preserved; the server uses the first hash it
// recognizes as the resume point.
func (s *SynchronizationStatus) GetBlockCheckpoints() []modules.Hash {
	out := make([]modules.Hash, 0, len(s.blockHashCheckpoints)+len(s.lastKnownBlockHashes))
	out = append(out, s.blockHashCheckpoints...)
	out = append(out, s.lastKnownBlockHashes...)
	return out
}

// LastKnownBlockHeight returns the height of the most recently stored
// block hash.
func (s *SynchronizationStatus) LastKnownBlockHeight() uint64 { return s.lastKnownBlockHeight }

// TipHash returns the hash most recently stored by StoreBlockHash, and
// false if nothing has been stored yet (a fresh wallet).
func (s *SynchronizationStatus) TipHash() (modules.Hash, bool) {
	if len(s.lastKnownBlockHashes) == 0 {
		return modules.Hash{}, false
	}
	return s.lastKnownBlockHashes[0], true
}

// HashAtHeight returns the hash stored for height, and false if it falls
// outside the dense window (lastKnownBlockHashes is newest-first and
// contiguous, so the entry for height is at index lastKnownBlockHeight-height).
func (s *SynchronizationStatus) HashAtHeight(height uint64) (modules.Hash, bool) {
	if height > s.lastKnownBlockHeight {
		return modules.Hash{}, false
	}
	idx := s.lastKnownBlockHeight - height
	if idx >= uint64(len(s.lastKnownBlockHashes)) {
		return modules.Hash{}, false
	}
	return s.lastKnownBlockHashes[idx], true
}

// StartHeight and StartTimestamp return the wallet's original scan anchor.
func (s *SynchronizationStatus) StartHeight() uint64    { return s.startHeight }
func (s *SynchronizationStatus) StartTimestamp() uint64 { return s.startTimestamp }

// Reset rewinds the status to the given surviving height/hash after a
// reorg, before the next fetch. The sparse checkpoint list has no height
// attached to each entry, so it cannot be selectively pruned; it is instead
// dropped entirely and rebuilt going forward as StoreBlockHash is called
// again past the next checkpoint stride. A zero hash means the surviving
// hash is unknown: the dense window is then left empty, so TipHash reports
// false and no zero hash is offered to the daemon as a checkpoint.
func (s *SynchronizationStatus) Reset(height uint64, hash modules.Hash) {
	s.lastKnownBlockHashes = nil
	if hash != (modules.Hash{}) {
		s.lastKnownBlockHashes = []modules.Hash{hash}
	}
	s.blockHashCheckpoints = nil
	s.lastKnownBlockHeight = height
}
