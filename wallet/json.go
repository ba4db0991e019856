package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/turtlecoin/walletd-sync/modules"
)

// walletFileFormatVersion is the only version this package knows how to
// read or write. Bumping it is an explicit, reviewed decision, not
// something the deserializer infers.
const walletFileFormatVersion = 1

// The types below mirror the stable JSON contract from spec.md §6 field
// for field. Round-tripping through them is the core's guarantee; actual
// encrypted-file framing is left to the (out-of-scope) persistence
// collaborator.

type walletFileJSON struct {
	WalletFileFormatVersion int            `json:"walletFileFormatVersion"`
	SubWallets              subWalletsJSON `json:"subWallets"`
	SynchronizationStatus   syncStatusJSON `json:"synchronizationStatus"`
}

type subWalletsJSON struct {
	PublicSpendKeys     []string        `json:"publicSpendKeys"`
	SubWallet           []subWalletJSON `json:"subWallet"`
	Transactions        []txJSON        `json:"transactions"`
	LockedTransactions  []txJSON        `json:"lockedTransactions"`
	PrivateViewKey      string          `json:"privateViewKey"`
	IsViewWallet        bool            `json:"isViewWallet"`
	TxPrivateKeys       []txPrivateKeyJSON `json:"txPrivateKeys"`
}

type subWalletJSON struct {
	PublicSpendKey    string               `json:"publicSpendKey"`
	Address           string               `json:"address"`
	ScanHeight        uint64               `json:"scanHeight"`
	CreationTimestamp uint64               `json:"creationTimestamp"`
	PrivateSpendKey   string               `json:"privateSpendKey"`
	Inputs            []receivedInputJSON  `json:"inputs"`
	LockedInputs      []unconfirmedInputJSON `json:"lockedInputs"`
	KeyImages         []string             `json:"keyImages"`
}

type receivedInputJSON struct {
	KeyImage          string `json:"keyImage"`
	Amount            uint64 `json:"amount"`
	BlockHeight       uint64 `json:"blockHeight"`
	TxPublicKey       string `json:"txPublicKey"`
	TransactionIndex  int    `json:"transactionIndex"`
	GlobalOutputIndex uint64 `json:"globalOutputIndex"`
	Key               string `json:"key"`
	SpendHeight       uint64 `json:"spendHeight"`
	UnlockTime        uint64 `json:"unlockTime"`
	ParentTxHash      string `json:"parentTxHash"`
}

type unconfirmedInputJSON struct {
	Amount       uint64 `json:"amount"`
	Key          string `json:"key"`
	ParentTxHash string `json:"parentTxHash"`
}

type txJSON struct {
	Hash        string           `json:"hash"`
	Fee         uint64           `json:"fee"`
	BlockHeight uint64           `json:"blockHeight"`
	Timestamp   uint64           `json:"timestamp"`
	PaymentID   string           `json:"paymentId"`
	UnlockTime  uint64           `json:"unlockTime"`
	IsCoinbase  bool             `json:"isCoinbase"`
	Transfers   []transferJSON   `json:"transfers"`
}

type transferJSON struct {
	PublicKey string `json:"publicKey"`
	Amount    int64  `json:"amount"`
}

type txPrivateKeyJSON struct {
	TransactionHash string `json:"transactionHash"`
	TxPrivateKey    string `json:"txPrivateKey"`
}

type syncStatusJSON struct {
	BlockHashCheckpoints []string `json:"blockHashCheckpoints"`
	LastKnownBlockHashes []string `json:"lastKnownBlockHashes"`
	LastKnownBlockHeight uint64   `json:"lastKnownBlockHeight"`
	StartHeight          uint64   `json:"startHeight"`
	StartTimestamp       uint64   `json:"startTimestamp"`
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func hexDecode32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, modules.NewError(modules.InvalidKey, err)
	}
	if len(b) != 32 {
		return out, modules.NewError(modules.InvalidKey, fmt.Errorf("expected 32 bytes, got %d", len(b)))
	}
	copy(out[:], b)
	return out, nil
}

// MarshalJSON serializes a Backend's full state into the stable shape from
// spec.md §6.
func (b *Backend) MarshalJSON() ([]byte, error) {
	doc := walletFileJSON{
		WalletFileFormatVersion: walletFileFormatVersion,
		SubWallets: subWalletsJSON{
			PrivateViewKey: hexEncode(b.subWallets.privateViewKey[:]),
			IsViewWallet:   b.subWallets.isViewWallet,
		},
		SynchronizationStatus: syncStatusJSON{
			LastKnownBlockHeight: b.syncStatus.LastKnownBlockHeight(),
			StartHeight:          b.syncStatus.StartHeight(),
			StartTimestamp:       b.syncStatus.StartTimestamp(),
		},
	}

	for _, pub := range b.subWallets.publicSpendKeys {
		doc.SubWallets.PublicSpendKeys = append(doc.SubWallets.PublicSpendKeys, hexEncode(pub[:]))
		sub, _ := b.subWallets.GetSubWallet(pub)
		doc.SubWallets.SubWallet = append(doc.SubWallets.SubWallet, marshalSubWallet(sub))
	}
	for _, tx := range b.subWallets.confirmedTxs {
		doc.SubWallets.Transactions = append(doc.SubWallets.Transactions, marshalTx(tx))
	}
	for _, tx := range b.subWallets.lockedTxs {
		doc.SubWallets.LockedTransactions = append(doc.SubWallets.LockedTransactions, marshalTx(tx))
	}
	for hash, key := range b.subWallets.txPrivateKeys {
		doc.SubWallets.TxPrivateKeys = append(doc.SubWallets.TxPrivateKeys, txPrivateKeyJSON{
			TransactionHash: hexEncode(hash[:]),
			TxPrivateKey:    hexEncode(key),
		})
	}

	for _, h := range b.syncStatus.blockHashCheckpoints {
		doc.SynchronizationStatus.BlockHashCheckpoints = append(doc.SynchronizationStatus.BlockHashCheckpoints, hexEncode(h[:]))
	}
	for _, h := range b.syncStatus.lastKnownBlockHashes {
		doc.SynchronizationStatus.LastKnownBlockHashes = append(doc.SynchronizationStatus.LastKnownBlockHashes, hexEncode(h[:]))
	}

	return json.MarshalIndent(doc, "", "  ")
}

func marshalSubWallet(s *SubWallet) subWalletJSON {
	out := subWalletJSON{
		PublicSpendKey:    hexEncode(s.PublicSpendKey[:]),
		Address:           s.Address,
		ScanHeight:        s.ScanHeight,
		CreationTimestamp: s.CreationTimestamp,
		PrivateSpendKey:   hexEncode(s.PrivateSpendKey[:]),
	}
	for _, in := range s.Inputs {
		out.Inputs = append(out.Inputs, receivedInputJSON{
			KeyImage:          hexEncode(in.KeyImage[:]),
			Amount:            in.Amount,
			BlockHeight:       in.BlockHeight,
			TxPublicKey:       hexEncode(in.TxPublicKey[:]),
			TransactionIndex:  in.TransactionIndex,
			GlobalOutputIndex: in.GlobalOutputIndex,
			Key:               hexEncode(in.Key[:]),
			SpendHeight:       in.SpendHeight,
			UnlockTime:        in.UnlockTime,
			ParentTxHash:      hexEncode(in.ParentTxHash[:]),
		})
	}
	for _, in := range s.LockedInputs {
		out.LockedInputs = append(out.LockedInputs, unconfirmedInputJSON{
			Amount:       in.Amount,
			Key:          hexEncode(in.Key[:]),
			ParentTxHash: hexEncode(in.ParentTxHash[:]),
		})
	}
	for ki := range s.keyImages {
		out.KeyImages = append(out.KeyImages, hexEncode(ki[:]))
	}
	return out
}

func marshalTx(tx modules.Transaction) txJSON {
	out := txJSON{
		Hash:        hexEncode(tx.Hash[:]),
		Fee:         tx.Fee,
		BlockHeight: tx.BlockHeight,
		Timestamp:   tx.Timestamp,
		PaymentID:   hexEncode(tx.PaymentID[:]),
		UnlockTime:  tx.UnlockTime,
		IsCoinbase:  tx.IsCoinbase,
	}
	for pub, amt := range tx.Transfers {
		out.Transfers = append(out.Transfers, transferJSON{PublicKey: hexEncode(pub[:]), Amount: amt})
	}
	return out
}

// UnmarshalJSON rebuilds a Backend's state from the stable shape, failing
// with a tagged modules.Error rather than silently producing malformed
// state - spec.md §9.
func (b *Backend) UnmarshalJSON(data []byte) error {
	var doc walletFileJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return modules.NewError(modules.InvalidKey, err)
	}
	if doc.WalletFileFormatVersion != walletFileFormatVersion {
		return modules.NewError(modules.InvalidKey, fmt.Errorf("unsupported wallet file format version %d", doc.WalletFileFormatVersion))
	}

	viewKeyBytes, err := hexDecode32(doc.SubWallets.PrivateViewKey)
	if err != nil {
		return err
	}

	sw := NewSubWallets(modules.PrivateViewKey(viewKeyBytes), doc.SubWallets.IsViewWallet)

	for _, sj := range doc.SubWallets.SubWallet {
		pub, err := hexDecode32(sj.PublicSpendKey)
		if err != nil {
			return err
		}
		priv, err := hexDecode32(sj.PrivateSpendKey)
		if err != nil {
			return err
		}
		sub := NewSubWallet(sj.Address, modules.PublicSpendKey(pub), modules.PrivateSpendKey(priv), sj.ScanHeight, sj.CreationTimestamp)
		for _, ij := range sj.Inputs {
			input, err := unmarshalReceivedInput(ij)
			if err != nil {
				return err
			}
			sub.StoreInput(input)
		}
		for _, lj := range sj.LockedInputs {
			input, err := unmarshalUnconfirmedInput(lj)
			if err != nil {
				return err
			}
			sub.LockedInputs = append(sub.LockedInputs, input)
		}
		sw.AddSubWallet(sub)
	}

	for _, tj := range doc.SubWallets.Transactions {
		tx, err := unmarshalTx(tj)
		if err != nil {
			return err
		}
		if err := sw.AddTransaction(tx); err != nil {
			return err
		}
	}
	for _, tj := range doc.SubWallets.LockedTransactions {
		tx, err := unmarshalTx(tj)
		if err != nil {
			return err
		}
		sw.AddLockedTransaction(tx)
	}
	for _, kj := range doc.SubWallets.TxPrivateKeys {
		hash, err := hexDecode32(kj.TransactionHash)
		if err != nil {
			return err
		}
		key, err := hex.DecodeString(kj.TxPrivateKey)
		if err != nil {
			return modules.NewError(modules.InvalidKey, err)
		}
		sw.SetTxPrivateKey(modules.TxHash(hash), key)
	}

	b.subWallets = sw

	cfg := b.cfg
	status := NewSynchronizationStatus(doc.SynchronizationStatus.StartHeight, doc.SynchronizationStatus.StartTimestamp, cfg)
	for i := 0; i < len(doc.SynchronizationStatus.BlockHashCheckpoints); i++ {
		h, err := hexDecode32(doc.SynchronizationStatus.BlockHashCheckpoints[i])
		if err != nil {
			return err
		}
		status.blockHashCheckpoints = append(status.blockHashCheckpoints, modules.Hash(h))
	}
	for i := 0; i < len(doc.SynchronizationStatus.LastKnownBlockHashes); i++ {
		h, err := hexDecode32(doc.SynchronizationStatus.LastKnownBlockHashes[i])
		if err != nil {
			return err
		}
		status.lastKnownBlockHashes = append(status.lastKnownBlockHashes, modules.Hash(h))
	}
	status.lastKnownBlockHeight = doc.SynchronizationStatus.LastKnownBlockHeight
	b.syncStatus = status

	return nil
}

func unmarshalReceivedInput(j receivedInputJSON) (modules.ReceivedInput, error) {
	ki, err := hexDecode32(j.KeyImage)
	if err != nil {
		return modules.ReceivedInput{}, err
	}
	txPub, err := hexDecode32(j.TxPublicKey)
	if err != nil {
		return modules.ReceivedInput{}, err
	}
	key, err := hexDecode32(j.Key)
	if err != nil {
		return modules.ReceivedInput{}, err
	}
	parent, err := hexDecode32(j.ParentTxHash)
	if err != nil {
		return modules.ReceivedInput{}, err
	}
	return modules.ReceivedInput{
		KeyImage:          modules.KeyImage(ki),
		Amount:            j.Amount,
		BlockHeight:       j.BlockHeight,
		TxPublicKey:       modules.TxPublicKey(txPub),
		TransactionIndex:  j.TransactionIndex,
		GlobalOutputIndex: j.GlobalOutputIndex,
		Key:               key,
		SpendHeight:       j.SpendHeight,
		UnlockTime:        j.UnlockTime,
		ParentTxHash:       modules.TxHash(parent),
	}, nil
}

func unmarshalUnconfirmedInput(j unconfirmedInputJSON) (modules.UnconfirmedInput, error) {
	key, err := hexDecode32(j.Key)
	if err != nil {
		return modules.UnconfirmedInput{}, err
	}
	parent, err := hexDecode32(j.ParentTxHash)
	if err != nil {
		return modules.UnconfirmedInput{}, err
	}
	return modules.UnconfirmedInput{
		Amount:       j.Amount,
		Key:          key,
		ParentTxHash: modules.TxHash(parent),
	}, nil
}

func unmarshalTx(j txJSON) (modules.Transaction, error) {
	hash, err := hexDecode32(j.Hash)
	if err != nil {
		return modules.Transaction{}, err
	}
	paymentID, err := hexDecode32(j.PaymentID)
	if err != nil {
		return modules.Transaction{}, err
	}
	tx := modules.Transaction{
		Hash:        modules.TxHash(hash),
		Fee:         j.Fee,
		BlockHeight: j.BlockHeight,
		Timestamp:   j.Timestamp,
		PaymentID:   modules.PaymentID(paymentID),
		UnlockTime:  j.UnlockTime,
		IsCoinbase:  j.IsCoinbase,
		Transfers:   make(map[modules.PublicSpendKey]int64, len(j.Transfers)),
	}
	for _, t := range j.Transfers {
		pub, err := hexDecode32(t.PublicKey)
		if err != nil {
			return modules.Transaction{}, err
		}
		tx.Transfers[modules.PublicSpendKey(pub)] = t.Amount
	}
	return tx, nil
}
