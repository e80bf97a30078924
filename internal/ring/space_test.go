package ring

import (
	"math/big"
	"testing"
)

func mustSpace(t *testing.T, bits int) Space {
	t.Helper()
	sp, err := NewSpace(bits)
	if err != nil {
		t.Fatalf("NewSpace(%d): %v", bits, err)
	}
	return sp
}

func (sp Space) FromBigIntForTest(v int64) ID {
	return sp.FromBigInt(big.NewInt(v))
}

func TestWithinLinear(t *testing.T) {
	sp := mustSpace(t, 8)
	a := sp.FromBigIntForTest(10)
	b := sp.FromBigIntForTest(20)

	if !sp.FromBigIntForTest(15).Within(a, b, false, true) {
		t.Fatal("expected 15 in (10,20]")
	}
	if a.Within(a, b, false, true) {
		t.Fatal("expected 10 not in (10,20]")
	}
	if !a.Within(a, b, true, true) {
		t.Fatal("expected 10 in [10,20]")
	}
	if !b.Within(a, b, false, true) {
		t.Fatal("expected 20 in (10,20]")
	}
}

func TestWithinWrap(t *testing.T) {
	sp := mustSpace(t, 8)
	a := sp.FromBigIntForTest(250)
	b := sp.FromBigIntForTest(5)

	if !sp.FromBigIntForTest(252).Within(a, b, false, true) {
		t.Fatal("expected 252 in (250,5] wrap-around")
	}
	if !sp.FromBigIntForTest(2).Within(a, b, false, true) {
		t.Fatal("expected 2 in (250,5] wrap-around")
	}
	if sp.FromBigIntForTest(100).Within(a, b, false, true) {
		t.Fatal("expected 100 not in (250,5] wrap-around")
	}
}

func TestWithinDegenerate(t *testing.T) {
	sp := mustSpace(t, 8)
	a := sp.FromBigIntForTest(42)

	for v := 0; v < 256; v++ {
		if !sp.FromBigIntForTest(int64(v)).Within(a, a, false, true) {
			t.Fatalf("expected whole-ring interval (a,a] to contain %d", v)
		}
	}
	if !a.Within(a, a, true, true) {
		t.Fatal("expected [a,a] to contain a")
	}
	if sp.FromBigIntForTest(43).Within(a, a, true, true) {
		t.Fatal("expected [a,a] to exclude any other point")
	}
}

func TestFingerStartWraps(t *testing.T) {
	sp := mustSpace(t, 4) // ring of size 16
	id := sp.FromBigIntForTest(15)
	got := sp.FingerStart(id, 0) // 15 + 1 mod 16 = 0
	if got.BigInt().Int64() != 0 {
		t.Fatalf("FingerStart(15,0) = %s, want 0", got.Decimal())
	}
}

func TestDistance(t *testing.T) {
	sp := mustSpace(t, 4)
	x := sp.FromBigIntForTest(14)
	y := sp.FromBigIntForTest(2)
	if sp.Distance(x, y).Int64() != 4 { // (2 - 14) mod 16 = 4
		t.Fatalf("Distance(14,2) = %s, want 4", sp.Distance(x, y))
	}
}

func TestHashStringDeterministic(t *testing.T) {
	sp := mustSpace(t, 160)
	a := sp.HashString("node-1")
	b := sp.HashString("node-1")
	if !a.Equal(b) {
		t.Fatal("HashString should be deterministic")
	}
	if err := sp.IsValid(a); err != nil {
		t.Fatalf("hash produced invalid id: %v", err)
	}
}

func TestFromHexRoundTrip(t *testing.T) {
	sp := mustSpace(t, 160)
	id := sp.HashString("round-trip")
	parsed, err := sp.FromHex(id.Hex())
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	if !parsed.Equal(id) {
		t.Fatalf("round trip mismatch: %s != %s", parsed.Hex(), id.Hex())
	}
}

func TestCmpAndEqual(t *testing.T) {
	sp := mustSpace(t, 8)
	a := sp.FromBigIntForTest(5)
	b := sp.FromBigIntForTest(10)
	if a.Cmp(b) >= 0 {
		t.Fatal("expected 5 < 10")
	}
	if !a.Equal(sp.FromBigIntForTest(5)) {
		t.Fatal("expected equal ids to compare equal")
	}
}
