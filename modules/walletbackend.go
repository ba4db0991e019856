package modules

// WalletBackend is the facade spec.md §4.H describes: lifecycle, event
// subscription, and read-only queries. The concrete implementation lives in
// package wallet (wallet.Backend), the same split the teacher uses between
// this modules package's Wallet interface and modules/wallet.Wallet.
type WalletBackend interface {
	Start() error
	Stop() error

	Subscribe(name EventName, handler func(interface{})) (unsubscribe func())

	GetSyncStatus() (walletHeight, daemonHeight, networkHeight uint64, err error)
	GetBalance(subset []PublicSpendKey) (unlocked, locked uint64, err error)
	GetNodeFee() (address string, amount uint64, err error)
	GetPrimaryAddress() (string, error)
	GetSpendKeys(address string) (pub PublicSpendKey, priv PrivateSpendKey, err error)
	GetMnemonicSeed(address string) (string, error)
	GetPrivateViewKey() PrivateViewKey

	SaveToFile(path string) error
}
