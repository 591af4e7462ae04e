// Package crypto implements the confidential-amount cryptographic
// pipeline: secp256k1 ECDSA signing and key handling, ElGamal
// encryption/decryption, Bulletproofs range proofs, and ECDH-based
// stealth address derivation.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// ErrInvalidSignature is returned when an ECDSA signature fails to verify.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// PrivateKey wraps a secp256k1 scalar.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps a secp256k1 curve point.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GenerateKey samples a new uniformly-random secp256k1 key pair.
func GenerateKey() (*PrivateKey, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// PrivateKeyFromBytes parses a 32-byte big-endian scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("crypto: private key must be 32 bytes, got %d", len(b))
	}
	k := secp256k1.PrivKeyFromBytes(b)
	return &PrivateKey{key: k}, nil
}

// Bytes returns the 32-byte big-endian encoding of the scalar.
func (p *PrivateKey) Bytes() []byte {
	b := p.key.Serialize()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// PubKey returns the public key corresponding to p.
func (p *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: p.key.PubKey()}
}

// Scalar exposes the underlying modular scalar for ElGamal arithmetic.
func (p *PrivateKey) Scalar() *secp256k1.ModNScalar {
	return &p.key.Key
}

// PublicKeyFromBytes parses a SEC1-encoded public key, compressed (33
// bytes) or uncompressed (65 bytes).
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	k, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	return &PublicKey{key: k}, nil
}

// SEC1Compressed returns the 33-byte compressed SEC1 encoding.
func (p *PublicKey) SEC1Compressed() []byte {
	return p.key.SerializeCompressed()
}

// SEC1Uncompressed returns the 65-byte uncompressed SEC1 encoding.
func (p *PublicKey) SEC1Uncompressed() []byte {
	return p.key.SerializeUncompressed()
}

// Point exposes the underlying curve point for ElGamal arithmetic.
func (p *PublicKey) Point() *secp256k1.PublicKey {
	return p.key
}

// Signature is the detached R/s ECDSA signature, wire-encoded as hex
// per spec.md's JSON-RPC schema ({"R": hex-32, "s": hex-32}).
type Signature struct {
	R *big.Int
	S *big.Int
}

// Sign produces a deterministic-nonce (RFC 6979) ECDSA signature over a
// 32-byte digest, as required by calculate_id-based transaction ids.
func Sign(priv *PrivateKey, digest [32]byte) (*Signature, error) {
	sig := ecdsa.Sign(priv.key, digest[:])
	r := sig.R()
	s := sig.S()
	return &Signature{R: new(big.Int).SetBytes(r.Bytes()[:]), S: new(big.Int).SetBytes(s.Bytes()[:])}, nil
}

// Verify checks sig over digest under pub. Returns ErrInvalidSignature
// (not a bare false) so callers can map it directly onto the engine's
// InvalidSignature error kind.
func Verify(pub *PublicKey, digest [32]byte, sig *Signature) error {
	var r, s secp256k1.ModNScalar
	r.SetByteSlice(leftPad32(sig.R.Bytes()))
	s.SetByteSlice(leftPad32(sig.S.Bytes()))
	ecSig := ecdsa.NewSignature(&r, &s)
	if !ecSig.Verify(digest[:], pub.key) {
		return ErrInvalidSignature
	}
	return nil
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// RandomScalar samples a uniform scalar on secp256k1's order, using
// crypto/rand as the entropy source.
func RandomScalar() (*secp256k1.ModNScalar, error) {
	var buf [32]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, fmt.Errorf("crypto: read random scalar: %w", err)
		}
		var s secp256k1.ModNScalar
		overflow := s.SetByteSlice(buf[:])
		if overflow || s.IsZero() {
			continue
		}
		return &s, nil
	}
}
