package modules

import "context"

// DaemonClient is the wire-transport capability consumed by MainLoop: block
// batch fetch, height/fee/status queries. It is an external collaborator
// per spec.md §1 (two concrete providers are anticipated - a conventional
// node and a blockchain-cache accelerator - but neither wire transport
// belongs to this core).
type DaemonClient interface {
	// Info returns the daemon's current view of the chain and its own
	// connectivity.
	Info(ctx context.Context) (DaemonInfo, error)

	// Fee returns the daemon operator's node fee, if any.
	Fee(ctx context.Context) (FeeInfo, error)

	// GetWalletSyncData returns a batch of blocks starting after the first
	// checkpoint the daemon recognizes. An empty result means the daemon
	// has nothing newer than our tip.
	GetWalletSyncData(ctx context.Context, req WalletSyncDataRequest) ([]Block, error)

	// GetGlobalIndexesForRange returns, for every transaction hash touched
	// by blocks in [startHeight, endHeight), its outputs' global indexes.
	GetGlobalIndexesForRange(ctx context.Context, startHeight, endHeight uint64) (map[TxHash][]uint64, error)

	// GetTransactionsStatus reports which of the given transaction hashes
	// the daemon no longer knows about (e.g. because they were never
	// relayed, or were evicted from the pool).
	GetTransactionsStatus(ctx context.Context, hashes []TxHash) (TransactionsStatus, error)
}

// DaemonInfo is the daemon's self-reported status.
type DaemonInfo struct {
	Height                    uint64
	NetworkHeight             uint64
	IncomingConnectionsCount  int
	OutgoingConnectionsCount  int
	Difficulty                uint64
}

// FeeInfo is the daemon operator's configured node fee.
type FeeInfo struct {
	Status  string // "OK" required
	Address string
	Amount  uint64
}

// WalletSyncDataRequest is the input to DaemonClient.GetWalletSyncData.
type WalletSyncDataRequest struct {
	BlockHashCheckpoints []Hash
	StartHeight          uint64
	StartTimestamp       uint64
}

// TransactionsStatus is the result of DaemonClient.GetTransactionsStatus.
type TransactionsStatus struct {
	TransactionsUnknown []TxHash
}
