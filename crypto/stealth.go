package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/latticechain/ledgerd/types"
)

// StealthMetadata is the side-band data emitted alongside a stealth
// transaction, per spec.md §4.2 create_stealth.
type StealthMetadata struct {
	EphemeralPublicKey []byte // SEC1-compressed ephemeral public key
	ViewTag            byte   // first byte of the ECDH shared secret
}

// CreateStealth implements spec.md §4.2 create_stealth: derives a
// one-time destination address via ECDH between an ephemeral private
// key and the receiver's scan (view) public key, then truncates
// H(spend_pubkey + shared_secret*G) to types.AddressSize bytes.
func CreateStealth(receiverScanKey *PublicKey, receiverSpendKey *PublicKey, ephemeral *PrivateKey) (types.Address, StealthMetadata, error) {
	sharedSecret, err := ecdh(ephemeral, receiverScanKey)
	if err != nil {
		return types.Address{}, StealthMetadata{}, fmt.Errorf("crypto: create_stealth: %w", err)
	}

	addr := deriveStealthAddress(receiverSpendKey, sharedSecret)

	meta := StealthMetadata{
		EphemeralPublicKey: ephemeral.PubKey().SEC1Compressed(),
		ViewTag:            sharedSecret[0],
	}
	return addr, meta, nil
}

// ScanStealth implements spec.md §4.2 scan_stealth: recomputes the
// shared secret via ECDH using the embedded ephemeral public key,
// short-circuits on a view-tag mismatch, and otherwise recomputes the
// expected stealth address and compares it against candidateTo.
func ScanStealth(viewKey *PrivateKey, spendKey *PublicKey, meta StealthMetadata, candidateTo types.Address) (bool, error) {
	ephemeralPub, err := PublicKeyFromBytes(meta.EphemeralPublicKey)
	if err != nil {
		return false, fmt.Errorf("crypto: scan_stealth: %w", err)
	}

	sharedSecret, err := ecdhFromPriv(viewKey, ephemeralPub)
	if err != nil {
		return false, fmt.Errorf("crypto: scan_stealth: %w", err)
	}

	if sharedSecret[0] != meta.ViewTag {
		return false, nil
	}

	expected := deriveStealthAddress(spendKey, sharedSecret)
	return expected == candidateTo, nil
}

// ecdh computes the shared secret between an ephemeral private key and
// a recipient's public key: SHA-256 of the compressed SEC1 encoding of
// recipientPub * ephemeralPriv.
func ecdh(ephemeral *PrivateKey, recipientPub *PublicKey) ([32]byte, error) {
	return ecdhFromPriv(ephemeral, recipientPub)
}

func ecdhFromPriv(priv *PrivateKey, pub *PublicKey) ([32]byte, error) {
	var pubJacobian, shared secp256k1.JacobianPoint
	pub.key.AsJacobian(&pubJacobian)
	secp256k1.ScalarMultNonConst(priv.Scalar(), &pubJacobian, &shared)
	shared.ToAffine()

	sharedPub := secp256k1.NewPublicKey(&shared.X, &shared.Y)
	return sha256.Sum256(sharedPub.SerializeCompressed()), nil
}

// deriveStealthAddress computes H(spend_pubkey + shared_secret*G), the
// SHA-256 of the compressed encoding of the point sum, truncated to
// types.AddressSize bytes, per spec.md §4.2.
func deriveStealthAddress(spendKey *PublicKey, sharedSecret [32]byte) types.Address {
	var s secp256k1.ModNScalar
	s.SetByteSlice(sharedSecret[:])

	var g, sG, spend, stealth secp256k1.JacobianPoint
	generatorJacobian(&g)
	secp256k1.ScalarMultNonConst(&s, &g, &sG)
	spendKey.key.AsJacobian(&spend)
	secp256k1.AddNonConst(&spend, &sG, &stealth)
	stealth.ToAffine()
	stealthPub := secp256k1.NewPublicKey(&stealth.X, &stealth.Y)

	sum := sha256.Sum256(stealthPub.SerializeCompressed())

	var addr types.Address
	copy(addr[:], sum[:types.AddressSize])
	return addr
}
