package crypto

import (
	"bytes"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/latticechain/ledgerd/types"
)

// DecryptSearchLimit bounds the baby-step/giant-step search performed
// by Decrypt. Amounts above this bound cannot be recovered; this
// mirrors spec.md §4.1's instruction to "restrict amounts to small
// values" as the practical alternative to a full 2^64 search.
const DecryptSearchLimit = 1 << 40

// Ciphertext is the in-memory (curve-point) form of an ElGamal
// encryption, paired with its range proof. ToConfidentialAmount
// serializes it into the wire-level types.ConfidentialAmount.
type Ciphertext struct {
	C1 *secp256k1.JacobianPoint // r*G
	C2 *secp256k1.JacobianPoint // m*G + r*P
}

// Encrypt implements spec.md §4.1 Encrypt(amount, pk): samples a
// uniform scalar r, computes c1 = rG and c2 = mG + rP, and attaches a
// 64-bit Bulletproofs range proof produced under an independently
// sampled blinding factor (see rangeproof.go). The two blinding
// factors are deliberately independent, per the source design §9: this
// does not cryptographically bind the ciphertext to the range proof.
func Encrypt(amount uint64, pub *PublicKey) (types.ConfidentialAmount, error) {
	r, err := RandomScalar()
	if err != nil {
		return types.ConfidentialAmount{}, fmt.Errorf("crypto: encrypt: %w", err)
	}

	var m secp256k1.ModNScalar
	m.SetInt(amount)

	var g, c1, mG, rP, c2 secp256k1.JacobianPoint
	generatorJacobian(&g)

	secp256k1.ScalarMultNonConst(r, &g, &c1)
	c1.ToAffine()

	secp256k1.ScalarMultNonConst(&m, &g, &mG)

	var pubJacobian secp256k1.JacobianPoint
	pub.key.AsJacobian(&pubJacobian)
	secp256k1.ScalarMultNonConst(r, &pubJacobian, &rP)
	secp256k1.AddNonConst(&mG, &rP, &c2)
	c2.ToAffine()

	proof, err := proveRange(amount)
	if err != nil {
		return types.ConfidentialAmount{}, fmt.Errorf("crypto: encrypt: range proof: %w", err)
	}

	return types.ConfidentialAmount{
		C1:         jacobianCompressed(&c1),
		C2:         jacobianCompressed(&c2),
		RangeProof: proof,
	}, nil
}

// Decrypt implements spec.md §4.1 Decrypt(sk): computes M = c2 - sk*c1
// and recovers m via baby-step/giant-step over [0, DecryptSearchLimit).
// The source implementation used a binary search over serialized point
// bytes, which is not monotone in the scalar and therefore unsound
// (flagged in spec.md §9); this is the sound replacement spec.md §4.1
// explicitly calls for.
func Decrypt(ca types.ConfidentialAmount, priv *PrivateKey) (uint64, error) {
	c1, err := decompressPoint(ca.C1)
	if err != nil {
		return 0, fmt.Errorf("crypto: decrypt: c1: %w", err)
	}
	c2, err := decompressPoint(ca.C2)
	if err != nil {
		return 0, fmt.Errorf("crypto: decrypt: c2: %w", err)
	}

	var skC1 secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(priv.Scalar(), c1, &skC1)

	var negSkC1, m secp256k1.JacobianPoint
	negateJacobian(&skC1, &negSkC1)
	secp256k1.AddNonConst(c2, &negSkC1, &m)
	m.ToAffine()

	return babyStepGiantStep(&m)
}

// babyStepGiantStep recovers m such that point == m*G for m in
// [0, DecryptSearchLimit), using O(sqrt(limit)) time and space.
func babyStepGiantStep(target *secp256k1.JacobianPoint) (uint64, error) {
	const bound = DecryptSearchLimit
	m := uint64(1)
	for m*m < bound {
		m++
	}

	var g, gm secp256k1.JacobianPoint
	generatorJacobian(&g)
	var gmScalar secp256k1.ModNScalar
	gmScalar.SetInt(m)
	secp256k1.ScalarMultNonConst(&gmScalar, &g, &gm)
	gm.ToAffine()

	table := make(map[string]uint64, m)
	var acc secp256k1.JacobianPoint
	identityJacobian(&acc)
	for j := uint64(0); j < m; j++ {
		key := string(jacobianCompressed(&acc))
		table[key] = j
		secp256k1.AddNonConst(&acc, &g, &acc)
		acc.ToAffine()
	}

	var negGm secp256k1.JacobianPoint
	negateJacobian(&gm, &negGm)

	gamma := *target
	gamma.ToAffine()
	for i := uint64(0); i < m; i++ {
		key := string(jacobianCompressed(&gamma))
		if j, ok := table[key]; ok {
			return i*m + j, nil
		}
		secp256k1.AddNonConst(&gamma, &negGm, &gamma)
		gamma.ToAffine()
	}
	return 0, fmt.Errorf("crypto: decrypt: plaintext exceeds search bound %d", bound)
}

// VerifyRangeProof implements spec.md §4.1 VerifyRangeProof: verifies
// the range proof under the domain-separated transcript label and
// 64-bit bit length.
func VerifyRangeProof(ca types.ConfidentialAmount) error {
	return verifyRange(ca.C2, ca.RangeProof)
}

// VerifyGreaterThan implements spec.md §4.1 VerifyGreaterThan exactly
// as specified: it reproduces the source's behavior of a lexicographic
// byte comparison of the difference ciphertext against the identity
// point, rather than a true scalar-order comparison. This is flagged
// as cryptographically weak in spec.md §9 and is implemented as
// specified, not silently strengthened.
func VerifyGreaterThan(self, other types.ConfidentialAmount) (bool, error) {
	if err := VerifyRangeProof(self); err != nil {
		return false, fmt.Errorf("crypto: verify_greater_than: self range proof: %w", err)
	}
	if err := VerifyRangeProof(other); err != nil {
		return false, fmt.Errorf("crypto: verify_greater_than: other range proof: %w", err)
	}

	c2Self, err := decompressPoint(self.C2)
	if err != nil {
		return false, err
	}
	c2Other, err := decompressPoint(other.C2)
	if err != nil {
		return false, err
	}

	var negOther, diff secp256k1.JacobianPoint
	negateJacobian(c2Other, &negOther)
	secp256k1.AddNonConst(c2Self, &negOther, &diff)
	diff.ToAffine()

	var identity secp256k1.JacobianPoint
	identityJacobian(&identity)

	return bytes.Compare(jacobianCompressed(&diff), jacobianCompressed(&identity)) > 0, nil
}

// VerifyGreaterThanU64 implements spec.md §4.1 VerifyGreaterThanU64: as
// VerifyGreaterThan, but against a public value encoded as v*G.
func VerifyGreaterThanU64(self types.ConfidentialAmount, value uint64) (bool, error) {
	if err := VerifyRangeProof(self); err != nil {
		return false, fmt.Errorf("crypto: verify_greater_than_u64: range proof: %w", err)
	}

	c2Self, err := decompressPoint(self.C2)
	if err != nil {
		return false, err
	}

	var v secp256k1.ModNScalar
	v.SetInt(value)
	var g, valuePoint, negValue, diff secp256k1.JacobianPoint
	generatorJacobian(&g)
	secp256k1.ScalarMultNonConst(&v, &g, &valuePoint)
	negateJacobian(&valuePoint, &negValue)
	secp256k1.AddNonConst(c2Self, &negValue, &diff)
	diff.ToAffine()

	var identity secp256k1.JacobianPoint
	identityJacobian(&identity)

	return bytes.Compare(jacobianCompressed(&diff), jacobianCompressed(&identity)) > 0, nil
}

// --- internal point helpers ---

func generatorJacobian(out *secp256k1.JacobianPoint) {
	g := secp256k1.NewPublicKey(secp256k1.S256().Gx, secp256k1.S256().Gy)
	g.AsJacobian(out)
}

func identityJacobian(out *secp256k1.JacobianPoint) {
	out.X.SetInt(0)
	out.Y.SetInt(0)
	out.Z.SetInt(0)
}

func negateJacobian(p, out *secp256k1.JacobianPoint) {
	*out = *p
	out.Y.Negate(1)
	out.Y.Normalize()
}

func jacobianCompressed(p *secp256k1.JacobianPoint) []byte {
	affine := *p
	affine.ToAffine()
	pub := secp256k1.NewPublicKey(&affine.X, &affine.Y)
	return pub.SerializeCompressed()
}

func decompressPoint(b []byte) (*secp256k1.JacobianPoint, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: decompress point: %w", err)
	}
	var j secp256k1.JacobianPoint
	pub.AsJacobian(&j)
	return &j, nil
}
