package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/turtlecoin/walletd-sync/modules"
)

// fakeCryptoOps is a deterministic stand-in for real CryptoNote
// cryptography, the same way the teacher's consensusSetStub in
// wallet_test.go stands in for a real modules.ConsensusSet. It treats an
// output's Key field as the owning subwallet's public spend key directly,
// skipping derivation math entirely - good enough to drive the recognition
// algorithm's control flow under test.
type fakeCryptoOps struct{}

func saltedKey32(salt string, parts ...[]byte) (out [32]byte) {
	h := sha256.New()
	h.Write([]byte(salt))
	for _, p := range parts {
		h.Write(p)
	}
	copy(out[:], h.Sum(nil))
	return
}

func (fakeCryptoOps) GenerateKeyDerivation(txPub modules.TxPublicKey, view modules.PrivateViewKey) (modules.Derivation, error) {
	var d modules.Derivation
	copy(d[:], txPub[:])
	return d, nil
}

func (fakeCryptoOps) UnderivePublicKey(derivation modules.Derivation, outputIndex int, outputKey [modules.HashSize]byte) (modules.PublicSpendKey, error) {
	return modules.PublicSpendKey(outputKey), nil
}

func (fakeCryptoOps) GenerateKeyImage(pub modules.PublicSpendKey, priv modules.PrivateSpendKey, derivation modules.Derivation, outputIndex int) (modules.KeyImage, error) {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(outputIndex))
	return modules.KeyImage(saltedKey32("keyimage", pub[:], priv[:], derivation[:], idx[:])), nil
}

func (fakeCryptoOps) GenerateKeyPairFromMnemonic(mnemonic string) (modules.PublicSpendKey, modules.PrivateSpendKey, modules.PrivateViewKey, error) {
	pub := modules.PublicSpendKey(saltedKey32("pub", []byte(mnemonic)))
	priv := modules.PrivateSpendKey(saltedKey32("priv", []byte(mnemonic)))
	view := modules.PrivateViewKey(saltedKey32("derived-view", priv[:]))
	return pub, priv, view, nil
}

func (fakeCryptoOps) GenerateMnemonic() (string, modules.PublicSpendKey, modules.PrivateSpendKey, modules.PrivateViewKey, error) {
	const m = "test mnemonic seed phrase"
	pub, priv, view, _ := (fakeCryptoOps{}).GenerateKeyPairFromMnemonic(m)
	return m, pub, priv, view, nil
}

func (fakeCryptoOps) DecodeAddress(address string) (modules.PublicSpendKey, modules.PrivateViewKey, error) {
	return modules.PublicSpendKey(saltedKey32("pub", []byte(address))), modules.PrivateViewKey{}, nil
}

func (fakeCryptoOps) EncodeAddress(pub modules.PublicSpendKey, view modules.PrivateViewKey) (string, error) {
	return "fake" + hex.EncodeToString(pub[:8]), nil
}

func (fakeCryptoOps) PrivateSpendKeyToViewKey(priv modules.PrivateSpendKey) (modules.PrivateViewKey, error) {
	return modules.PrivateViewKey(saltedKey32("derived-view", priv[:])), nil
}

func (fakeCryptoOps) PrivateSpendKeyToMnemonic(priv modules.PrivateSpendKey) (string, error) {
	const m = "test mnemonic seed phrase"
	_, wantPriv, _, _ := (fakeCryptoOps{}).GenerateKeyPairFromMnemonic(m)
	if priv != wantPriv {
		return "", modules.NewError(modules.InvalidMnemonic, nil)
	}
	return m, nil
}

// fakeDaemonClient is a hand-fed stand-in for a real node/blockchain-cache
// connection. Blocks/height/fee are set directly by the test, mirroring how
// the teacher's stubs expose their scripted responses as plain fields.
type fakeDaemonClient struct {
	blocks         []modules.Block
	height         uint64
	networkHeight  uint64
	fee            modules.FeeInfo
	globalIndexes  map[modules.TxHash][]uint64
	unknownTxs     []modules.TxHash
	infoErr        error
	syncErr        error
	globalIndexErr error
}

func (f *fakeDaemonClient) Info(ctx context.Context) (modules.DaemonInfo, error) {
	if f.infoErr != nil {
		return modules.DaemonInfo{}, f.infoErr
	}
	return modules.DaemonInfo{Height: f.height, NetworkHeight: f.networkHeight}, nil
}

func (f *fakeDaemonClient) Fee(ctx context.Context) (modules.FeeInfo, error) {
	return f.fee, nil
}

func (f *fakeDaemonClient) GetWalletSyncData(ctx context.Context, req modules.WalletSyncDataRequest) ([]modules.Block, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	out := f.blocks
	f.blocks = nil
	return out, nil
}

func (f *fakeDaemonClient) GetGlobalIndexesForRange(ctx context.Context, start, end uint64) (map[modules.TxHash][]uint64, error) {
	if f.globalIndexErr != nil {
		return nil, f.globalIndexErr
	}
	if f.globalIndexes == nil {
		return map[modules.TxHash][]uint64{}, nil
	}
	return f.globalIndexes, nil
}

func (f *fakeDaemonClient) GetTransactionsStatus(ctx context.Context, hashes []modules.TxHash) (modules.TransactionsStatus, error) {
	return modules.TransactionsStatus{TransactionsUnknown: f.unknownTxs}, nil
}

func hashFromByte(b byte) (h [32]byte) {
	h[0] = b
	return
}
