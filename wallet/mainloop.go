package wallet

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/NebulousLabs/threadgroup"

	"github.com/turtlecoin/walletd-sync/modules"
	"github.com/turtlecoin/walletd-sync/persist"
)

// MainLoop drives the fetch -> enqueue -> process pipeline: it asks the
// daemon for height and a batch of blocks anchored on our checkpoints,
// pushes the batch onto a bounded queue, drains a fixed number of blocks
// per tick through the Synchronizer, and emits sync/desync events -
// spec.md §4.G.
type MainLoop struct {
	daemon     modules.DaemonClient
	subWallets *SubWallets
	syncStatus *SynchronizationStatus
	sync       *Synchronizer
	cfg        modules.Config
	bus        *EventBus
	log        *persist.Logger

	tg threadgroup.ThreadGroup

	blocksToProcess chan modules.Block
	lockedHashes    func() []modules.TxHash

	globalIndexCache *lru.Cache // keyed by "startHeight-endHeight"

	synced bool
	ticker *time.Ticker
}

// globalIndexRangeKey formats a [startHeight, endHeight) range as the
// globalIndexCache key.
func globalIndexRangeKey(start, end uint64) string {
	return fmt.Sprintf("%d-%d", start, end)
}

// NewMainLoop wires up a MainLoop. lockedHashes returns the hashes of
// every currently-locked (unconfirmed, locally-issued) transaction, so the
// loop can ask the daemon which of them it no longer recognizes.
func NewMainLoop(daemon modules.DaemonClient, subWallets *SubWallets, syncStatus *SynchronizationStatus, synchronizer *Synchronizer, cfg modules.Config, bus *EventBus, log *persist.Logger, lockedHashes func() []modules.TxHash) (*MainLoop, error) {
	cache, err := lru.New(64)
	if err != nil {
		return nil, err
	}
	return &MainLoop{
		daemon:           daemon,
		subWallets:       subWallets,
		syncStatus:       syncStatus,
		sync:             synchronizer,
		cfg:              cfg,
		bus:              bus,
		log:              log,
		blocksToProcess:  make(chan modules.Block, cfg.QueueHighWaterMark),
		lockedHashes:     lockedHashes,
		globalIndexCache: cache,
	}, nil
}

// Start primes daemon info and launches the periodic tick goroutine. A
// MainLoop runs at most once: after Stop, its thread group stays stopped,
// so a later Start returns the thread group's error and launches nothing.
func (m *MainLoop) Start() error {
	if err := m.tg.Add(); err != nil {
		return err
	}
	defer m.tg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout)
	defer cancel()
	if _, err := m.daemon.Info(ctx); err != nil {
		if m.log != nil {
			m.log.Println("initial daemon info fetch failed:", err)
		}
	}

	m.ticker = time.NewTicker(m.cfg.MainLoopInterval)
	go m.run()
	return nil
}

// Stop cancels the periodic task. A tick already running when Stop is
// called finishes before Stop returns; any tick after that fails tg.Add()
// and touches nothing. Blocks still queued are left unprocessed.
func (m *MainLoop) Stop() error {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	return m.tg.Stop()
}

func (m *MainLoop) run() {
	for {
		select {
		case <-m.tg.StopChan():
			return
		case <-m.ticker.C:
			m.tick()
		}
	}
}

func (m *MainLoop) tick() {
	if err := m.tg.Add(); err != nil {
		return // already stopping; drop this tick entirely
	}
	defer m.tg.Done()

	m.fetchStep()
	m.processStep()
	m.reconcileLockedTransactions()
	m.emitSyncEvents()
}

// fetchStep asks the daemon for a block batch anchored on our current
// checkpoints. Transport failures are logged and swallowed; the next tick
// retries naturally, per spec.md §4.G / §7.
func (m *MainLoop) fetchStep() {
	if len(m.blocksToProcess) >= m.cfg.QueueHighWaterMark {
		return // queue full, let processStep drain before fetching more
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout)
	defer cancel()

	blocks, err := m.daemon.GetWalletSyncData(ctx, modules.WalletSyncDataRequest{
		BlockHashCheckpoints: m.syncStatus.GetBlockCheckpoints(),
		StartHeight:          m.syncStatus.StartHeight(),
		StartTimestamp:       m.syncStatus.StartTimestamp(),
	})
	if err != nil {
		if m.log != nil {
			m.log.Println("getWalletSyncData failed:", err)
		}
		return
	}
	if len(blocks) == 0 {
		return
	}

	if m.detectFork(blocks[0]) {
		return
	}

	for _, b := range blocks {
		select {
		case m.blocksToProcess <- b:
		default:
			return // queue filled up mid-batch; remainder fetched next tick
		}
	}
}

// detectFork reports whether first fails to extend our recorded tip - its
// height is at or below our tip, or it is the next height but its PrevHash
// differs from our tip hash - and if so performs the reorg via applyFork:
// removes forked transactions and rewinds SynchronizationStatus to the
// height just below the fork point - spec.md §4.F "Reorg handling".
func (m *MainLoop) detectFork(first modules.Block) bool {
	tipHeight := m.syncStatus.LastKnownBlockHeight()

	if first.Height <= tipHeight {
		// not a contiguous extension of our tip; treat first.Height itself
		// as the fork point, the daemon having rewound further than one
		// block past what we last stored.
		m.applyFork(first.Height)
		return true
	}

	if first.Height == tipHeight+1 {
		if tipHash, ok := m.syncStatus.TipHash(); ok && first.PrevHash != tipHash {
			// same-height reorg at our current tip: the batch still looks
			// like a contiguous extension by height, but it builds on a
			// different block than the one we recorded.
			m.applyFork(tipHeight)
			return true
		}
	}

	return false
}

func (m *MainLoop) applyFork(forkHeight uint64) {
	if m.log != nil {
		m.log.Println("reorg detected, rolling back to height", forkHeight)
	}
	m.subWallets.RemoveForkedTransactions(forkHeight)

	survivingHeight := uint64(0)
	if forkHeight > 0 {
		survivingHeight = forkHeight - 1
	}
	survivingHash, _ := m.syncStatus.HashAtHeight(survivingHeight)
	m.syncStatus.Reset(survivingHeight, survivingHash)

	// drop any queued blocks at or past the fork point; they were built on
	// the now-invalid chain.
	drained := make(chan modules.Block, cap(m.blocksToProcess))
	close(m.blocksToProcess)
	for b := range m.blocksToProcess {
		if b.Height < forkHeight {
			drained <- b
		}
	}
	m.blocksToProcess = drained
}

// processStep pops up to blocksPerTick blocks in order and applies each
// atomically to SubWallets, per spec.md §4.G.
func (m *MainLoop) processStep() {
	for i := 0; i < m.cfg.BlocksPerTick; i++ {
		var block modules.Block
		select {
		case block = <-m.blocksToProcess:
		default:
			return
		}
		m.applyBlock(block)
	}
}

func (m *MainLoop) applyBlock(block modules.Block) {
	snapshot := m.subWallets.Clone()

	if err := m.fillMissingGlobalIndexes(&block); err != nil {
		if m.log != nil {
			m.log.Println("global index fetch failed for block", block.Height, err)
		}
		return
	}

	data := m.sync.ProcessBlock(block)
	if err := ApplyTransactionData(m.subWallets, data); err != nil {
		if m.log != nil {
			m.log.Println("applying block failed, rolling back:", block.Height, err)
		}
		m.subWallets.Restore(snapshot)
		return
	}

	m.syncStatus.StoreBlockHash(block.Height, block.Hash)

	for _, tx := range data.TransactionsToAdd {
		m.emitTransactionEvents(tx)
	}
}

// fillMissingGlobalIndexes asks the daemon for a block's global output
// indexes when the daemon did not supply them inline, requesting the
// single-block range [height, height+1). Each block with missing indexes
// costs one request; the result is cached by that range, so only processing
// the same block again (e.g. after a reorg) skips the refetch -
// spec.md §4.G step (i).
func (m *MainLoop) fillMissingGlobalIndexes(block *modules.Block) error {
	needsFetch := false
	for _, tx := range block.Txs {
		for _, out := range tx.Outputs {
			if out.GlobalIndex == nil {
				needsFetch = true
				break
			}
		}
	}
	if !needsFetch {
		return nil
	}

	key := globalIndexRangeKey(block.Height, block.Height+1)
	var indexes map[modules.TxHash][]uint64
	if cached, ok := m.globalIndexCache.Get(key); ok {
		indexes = cached.(map[modules.TxHash][]uint64)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout)
		defer cancel()
		var err error
		indexes, err = m.daemon.GetGlobalIndexesForRange(ctx, block.Height, block.Height+1)
		if err != nil {
			return err
		}
		m.globalIndexCache.Add(key, indexes)
	}

	for ti := range block.Txs {
		tx := &block.Txs[ti]
		idxs, ok := indexes[tx.Hash]
		if !ok {
			continue
		}
		for oi := range tx.Outputs {
			if tx.Outputs[oi].GlobalIndex == nil && oi < len(idxs) {
				v := idxs[oi]
				tx.Outputs[oi].GlobalIndex = &v
			}
		}
	}
	return nil
}

// reconcileLockedTransactions asks the daemon which locked transactions it
// no longer recognizes and removes them - spec.md §4.G.
func (m *MainLoop) reconcileLockedTransactions() {
	hashes := m.lockedHashes()
	if len(hashes) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout)
	defer cancel()
	status, err := m.daemon.GetTransactionsStatus(ctx, hashes)
	if err != nil {
		if m.log != nil {
			m.log.Println("getTransactionsStatus failed:", err)
		}
		return
	}
	for _, h := range status.TransactionsUnknown {
		m.subWallets.RemoveCancelledTransaction(h)
	}
}

// emitSyncEvents implements spec.md §4.G's sync/desync rules.
func (m *MainLoop) emitSyncEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RequestTimeout)
	defer cancel()
	info, err := m.daemon.Info(ctx)
	if err != nil {
		return
	}

	w := m.syncStatus.LastKnownBlockHeight()
	n := info.NetworkHeight

	if !m.synced && w+1 >= n {
		m.bus.Emit(modules.EventSync, modules.SyncEvent{WalletHeight: w, NetworkHeight: n})
		m.synced = true
	} else if m.synced && w+1 < n {
		m.bus.Emit(modules.EventDesync, modules.SyncEvent{WalletHeight: w, NetworkHeight: n})
		m.synced = false
	}
}

func (m *MainLoop) emitTransactionEvents(tx modules.Transaction) {
	m.bus.Emit(modules.EventTransaction, tx)

	if tx.Fusion() {
		m.bus.Emit(modules.EventFusionTx, tx)
		return
	}

	var net int64
	for _, v := range tx.Transfers {
		net += v
	}
	if net >= 0 {
		m.bus.Emit(modules.EventIncomingTx, tx)
	} else {
		m.bus.Emit(modules.EventOutgoingTx, tx)
	}
}
