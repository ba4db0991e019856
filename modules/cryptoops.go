package modules

// CryptoOps is the CryptoNote cryptography capability consumed by the
// wallet synchronizer: address decoding, key derivation, key-image
// computation and mnemonic handling. It is an external collaborator per
// spec.md §1 - this package only ever calls through the interface, it
// never implements the primitives.
type CryptoOps interface {
	// GenerateKeyDerivation computes the shared secret between a
	// transaction's public key and a private view key.
	GenerateKeyDerivation(txPublicKey TxPublicKey, privateViewKey PrivateViewKey) (Derivation, error)

	// UnderivePublicKey recovers the spend key an output was sent to, given
	// the shared derivation and the output's index within its transaction.
	UnderivePublicKey(derivation Derivation, outputIndex int, outputKey [HashSize]byte) (PublicSpendKey, error)

	// GenerateKeyImage computes the key image for an output owned by the
	// given keypair, used to detect when that output is later spent.
	GenerateKeyImage(publicSpendKey PublicSpendKey, privateSpendKey PrivateSpendKey, derivation Derivation, outputIndex int) (KeyImage, error)

	// GenerateKeyPairFromMnemonic derives a deterministic (publicSpendKey,
	// privateSpendKey, privateViewKey) triple from a mnemonic seed phrase.
	GenerateKeyPairFromMnemonic(mnemonic string) (PublicSpendKey, PrivateSpendKey, PrivateViewKey, error)

	// GenerateMnemonic returns a fresh mnemonic seed phrase and its derived
	// keys.
	GenerateMnemonic() (mnemonic string, pub PublicSpendKey, priv PrivateSpendKey, view PrivateViewKey, err error)

	// DecodeAddress validates and decodes a wallet address into its public
	// spend/view keys.
	DecodeAddress(address string) (PublicSpendKey, PrivateViewKey, error)

	// EncodeAddress is the inverse of DecodeAddress.
	EncodeAddress(publicSpendKey PublicSpendKey, publicViewKey PrivateViewKey) (string, error)

	// PrivateSpendKeyToViewKey deterministically derives the private view
	// key a mnemonic-seed wallet would have been given at creation, so a
	// caller can tell a mnemonic-derived wallet apart from one imported
	// from independently generated keys.
	PrivateSpendKeyToViewKey(priv PrivateSpendKey) (PrivateViewKey, error)

	// PrivateSpendKeyToMnemonic is the inverse of
	// GenerateKeyPairFromMnemonic's key derivation; it fails if priv was
	// not itself derived from a mnemonic phrase.
	PrivateSpendKeyToMnemonic(priv PrivateSpendKey) (string, error)
}

// Derivation is the shared secret computed from a transaction's public key
// and a wallet's private view key.
type Derivation [HashSize]byte
