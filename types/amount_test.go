package types

import "testing"

func TestAmountKindString(t *testing.T) {
	cases := map[AmountKind]string{
		AmountPublic:       "Public",
		AmountConfidential: "Confidential",
		AmountKind(99):     "Unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("AmountKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestPublicAmountImplementsAmount(t *testing.T) {
	var a Amount = PublicAmount(42)
	if a.Kind() != AmountPublic {
		t.Errorf("Kind() = %v, want AmountPublic", a.Kind())
	}
}

func TestConfidentialAmountImplementsAmount(t *testing.T) {
	var a Amount = ConfidentialAmount{C1: []byte{1}, C2: []byte{2}, RangeProof: []byte{3}}
	if a.Kind() != AmountConfidential {
		t.Errorf("Kind() = %v, want AmountConfidential", a.Kind())
	}
}

func TestConfidentialAmountCloneIsDeep(t *testing.T) {
	orig := ConfidentialAmount{C1: []byte{1, 2, 3}, C2: []byte{4, 5}, RangeProof: []byte{6}}
	clone := orig.Clone()

	clone.C1[0] = 0xff
	if orig.C1[0] == 0xff {
		t.Error("Clone() shares backing array with original C1")
	}

	if len(clone.C2) != len(orig.C2) || len(clone.RangeProof) != len(orig.RangeProof) {
		t.Error("Clone() did not preserve field lengths")
	}
}
