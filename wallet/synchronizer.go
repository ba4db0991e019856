package wallet

import (
	"github.com/turtlecoin/walletd-sync/modules"
	"github.com/turtlecoin/walletd-sync/persist"
)

// TransactionData is the result of processing a single block: three lists
// to be applied atomically to SubWallets - spec.md §4.F.
type TransactionData struct {
	TransactionsToAdd     []modules.Transaction
	InputsToAdd           []SubWalletInput
	KeyImagesToMarkSpent  []SubWalletKeyImage
}

// SubWalletInput pairs a received input with the subwallet that owns it.
type SubWalletInput struct {
	PublicSpendKey modules.PublicSpendKey
	Input          modules.ReceivedInput
}

// SubWalletKeyImage pairs a spent key image with the subwallet that owned
// the output it spent and the height the spend was observed at.
type SubWalletKeyImage struct {
	PublicSpendKey modules.PublicSpendKey
	KeyImage       modules.KeyImage
	SpendHeight    uint64
}

// Synchronizer performs output recognition: it decrypts block outputs with
// the wallet's view key, recognizes spends of outputs the wallet owns, and
// synthesizes one Transaction per touched on-chain transaction - spec.md
// §4.F, "the heart" of the wallet.
type Synchronizer struct {
	ops        modules.CryptoOps
	subWallets *SubWallets
	cfg        modules.Config
	log        *persist.Logger
}

// NewSynchronizer builds a Synchronizer over the given SubWallets.
func NewSynchronizer(ops modules.CryptoOps, subWallets *SubWallets, cfg modules.Config, log *persist.Logger) *Synchronizer {
	return &Synchronizer{ops: ops, subWallets: subWallets, cfg: cfg, log: log}
}

// txState accumulates one transaction's recognition results across both
// passes of ProcessBlock.
type txState struct {
	receivedDelta map[modules.PublicSpendKey]uint64
	spentDelta    map[modules.PublicSpendKey]uint64
	totalOut      uint64
	totalIn       uint64
}

// ProcessBlock runs the output-recognition algorithm over every transaction
// in block and returns the three deltas to be applied atomically. It makes
// two passes over the block's transactions: every output is recognized
// before any input is checked against a key image, so a same-block
// output-then-spend of the same key image is recognized regardless of which
// transaction within the block produced the output and which one spends it
// - spec.md §4.F chain invariant.
func (sy *Synchronizer) ProcessBlock(block modules.Block) TransactionData {
	var data TransactionData

	var txs []modules.RawTx
	if block.CoinbaseTx != nil && sy.cfg.ScanCoinbase {
		txs = append(txs, *block.CoinbaseTx)
	}
	txs = append(txs, block.Txs...)

	states := make([]*txState, len(txs))
	newKeyImages := make(map[modules.KeyImage]modules.PublicSpendKey)

	for i, raw := range txs {
		states[i] = sy.recognizeOutputs(raw, block, &data, newKeyImages)
	}
	for i, raw := range txs {
		sy.recognizeSpends(raw, states[i], &data, newKeyImages, block.Height)
	}
	for i, raw := range txs {
		if tx, ok := sy.buildTransaction(raw, block, states[i]); ok {
			data.TransactionsToAdd = append(data.TransactionsToAdd, tx)
		}
	}

	return data
}

// recognizeOutputs walks tx's outputs, recording every one this wallet owns
// into data.InputsToAdd and, for spendable (non-view-only) subwallets, into
// newKeyImages so a later transaction in the same block can recognize a
// spend of it.
func (sy *Synchronizer) recognizeOutputs(tx modules.RawTx, block modules.Block, data *TransactionData, newKeyImages map[modules.KeyImage]modules.PublicSpendKey) *txState {
	st := &txState{
		receivedDelta: make(map[modules.PublicSpendKey]uint64),
		spentDelta:    make(map[modules.PublicSpendKey]uint64),
	}

	derivation, err := sy.ops.GenerateKeyDerivation(tx.TxPublicKey, sy.subWallets.PrivateViewKey())
	if err != nil {
		if sy.log != nil {
			sy.log.Println("skipping transaction, derivation failed:", tx.Hash, err)
		}
		return st
	}

	for i, output := range tx.Outputs {
		st.totalOut += output.Amount
		pub, err := sy.ops.UnderivePublicKey(derivation, i, output.Key)
		if err != nil {
			if sy.log != nil {
				sy.log.Println("skipping output, underive failed:", tx.Hash, i, err)
			}
			continue
		}
		sub, ok := sy.subWallets.GetSubWallet(pub)
		if !ok {
			continue
		}
		keyImage, err := sub.GetTxInputKeyImage(sy.ops, derivation, i)
		if err != nil {
			if sy.log != nil {
				sy.log.Println("skipping output, key image derivation failed:", tx.Hash, i, err)
			}
			continue
		}

		globalIndex := uint64(0)
		if output.GlobalIndex != nil {
			globalIndex = *output.GlobalIndex
		}

		data.InputsToAdd = append(data.InputsToAdd, SubWalletInput{
			PublicSpendKey: pub,
			Input: modules.ReceivedInput{
				KeyImage:          keyImage,
				Amount:            output.Amount,
				BlockHeight:       block.Height,
				TxPublicKey:       tx.TxPublicKey,
				TransactionIndex:  i,
				GlobalOutputIndex: globalIndex,
				Key:               output.Key,
				SpendHeight:       0,
				UnlockTime:        tx.UnlockTime,
				ParentTxHash:      tx.Hash,
			},
		})
		st.receivedDelta[pub] += output.Amount

		if !sub.IsViewOnly() {
			newKeyImages[keyImage] = pub
		}
	}

	return st
}

// recognizeSpends walks tx's inputs, checking each key image against both
// already-confirmed subwallet state and newKeyImages (outputs recognized
// earlier in this same block's first pass).
func (sy *Synchronizer) recognizeSpends(tx modules.RawTx, st *txState, data *TransactionData, newKeyImages map[modules.KeyImage]modules.PublicSpendKey, spendHeight uint64) {
	if tx.IsCoinbase {
		return
	}
	for _, input := range tx.Inputs {
		st.totalIn += input.Amount
		pub, found := sy.subWallets.GetKeyImageOwner(input.KeyImage)
		if !found {
			pub, found = newKeyImages[input.KeyImage]
		}
		if !found {
			continue
		}
		data.KeyImagesToMarkSpent = append(data.KeyImagesToMarkSpent, SubWalletKeyImage{
			PublicSpendKey: pub,
			KeyImage:       input.KeyImage,
			SpendHeight:    spendHeight,
		})
		st.spentDelta[pub] += input.Amount
	}
}

// buildTransaction synthesizes at most one Transaction per touched
// on-chain transaction, regardless of how many subwallets it touches.
func (sy *Synchronizer) buildTransaction(tx modules.RawTx, block modules.Block, st *txState) (modules.Transaction, bool) {
	if len(st.receivedDelta) == 0 && len(st.spentDelta) == 0 {
		return modules.Transaction{}, false
	}

	transfers := make(map[modules.PublicSpendKey]int64, len(st.receivedDelta)+len(st.spentDelta))
	for pub, amt := range st.receivedDelta {
		transfers[pub] += int64(amt)
	}
	for pub, amt := range st.spentDelta {
		transfers[pub] -= int64(amt)
	}

	var fee uint64
	if !tx.IsCoinbase && st.totalIn >= st.totalOut {
		fee = st.totalIn - st.totalOut
	}

	var paymentID modules.PaymentID
	if tx.PaymentID != nil {
		paymentID = *tx.PaymentID
	}

	return modules.Transaction{
		Hash:        tx.Hash,
		Fee:         fee,
		BlockHeight: block.Height,
		Timestamp:   block.Timestamp,
		PaymentID:   paymentID,
		UnlockTime:  tx.UnlockTime,
		IsCoinbase:  tx.IsCoinbase,
		Transfers:   transfers,
	}, true
}

// ApplyTransactionData applies a TransactionData to subWallets in order:
// inputs are stored first (outputs before spends, matching ProcessBlock's
// own ordering), key images are marked spent, then transactions are added.
// It does not undo earlier steps when a later one fails; atomicity comes
// from MainLoop.applyBlock, which restores its SubWallets snapshot on error.
func ApplyTransactionData(subWallets *SubWallets, data TransactionData) error {
	for _, in := range data.InputsToAdd {
		subWallets.StoreInput(in.PublicSpendKey, in.Input)
	}
	for _, ki := range data.KeyImagesToMarkSpent {
		_ = subWallets.MarkInputAsSpent(ki.PublicSpendKey, ki.KeyImage, ki.SpendHeight)
	}
	for _, tx := range data.TransactionsToAdd {
		if err := subWallets.AddTransaction(tx); err != nil {
			return err
		}
	}
	return nil
}
