package solident

import (
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

func TestClassify_Signature(t *testing.T) {
	// 64 zero bytes encode to a valid base58 signature-length string.
	sig := base58.Encode(make([]byte, 64))

	if got := Classify(sig); got != KindTransaction {
		t.Errorf("Classify(%d-byte sig) = %v, want KindTransaction", 64, got)
	}
}

func TestClassify_Wallet(t *testing.T) {
	wallet := base58.Encode(make([]byte, 32))

	if got := Classify(wallet); got != KindWallet {
		t.Errorf("Classify(32-byte key) = %v, want KindWallet", got)
	}

	// Real mainnet address.
	if got := Classify("8JZqZU7vSNwQCgBtMVrKDrLvEYmUp3p5AHQ6BmE9GTfd"); got != KindWallet {
		t.Errorf("Classify(mainnet address) = %v, want KindWallet", got)
	}
}

func TestClassify_LengthFallback(t *testing.T) {
	// Not valid base58 (contains 0 and l), but signature-length.
	notB58 := strings.Repeat("0l", 43) // 86 chars
	if got := Classify(notB58); got != KindTransaction {
		t.Errorf("Classify(86-char non-base58) = %v, want KindTransaction", got)
	}

	if got := Classify("0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l"); got != KindWallet {
		t.Errorf("Classify(36-char non-base58) = %v, want KindWallet", got)
	}
}

func TestClassify_Unknown(t *testing.T) {
	cases := []string{"", "abc", strings.Repeat("x", 200)}
	for _, in := range cases {
		if got := Classify(in); got != KindUnknown {
			t.Errorf("Classify(%q) = %v, want KindUnknown", in, got)
		}
	}
}

func TestIsOnCurveWallet(t *testing.T) {
	// The ed25519 base point compressed encoding is on curve.
	basePoint := make([]byte, 32)
	basePoint[0] = 0x58
	basePoint[1] = 0x66
	basePoint[2] = 0x66
	for i := 3; i < 32; i++ {
		basePoint[i] = 0x66
	}

	if !IsOnCurveWallet(base58.Encode(basePoint)) {
		t.Error("base point should be on curve")
	}

	if IsOnCurveWallet("not-base58!!") {
		t.Error("invalid base58 should not be on curve")
	}

	if IsOnCurveWallet(base58.Encode(make([]byte, 64))) {
		t.Error("signature-length input should not classify as wallet")
	}

	// y=2 has no matching x on the curve.
	offCurve := make([]byte, 32)
	offCurve[0] = 0x02
	if IsOnCurveWallet(base58.Encode(offCurve)) {
		t.Error("y=2 encoding should be off curve")
	}
}

func TestDecodesToAccountKey(t *testing.T) {
	if !DecodesToAccountKey(base58.Encode(make([]byte, 32))) {
		t.Error("32-byte decode should qualify")
	}
	if DecodesToAccountKey(base58.Encode(make([]byte, 64))) {
		t.Error("64-byte decode should not qualify")
	}
	// Wallet-length but not valid base58: no strict decode, no curve check.
	if DecodesToAccountKey("0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l0l") {
		t.Error("non-base58 input should not qualify")
	}
}
