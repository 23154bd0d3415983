// Package idhash computes deterministic identifiers so re-detections of
// the same evidence map to the same stored rows.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ComputeWalletRecordID derives a stable placeholder transaction id for a
// detection requested by wallet address when no concrete transaction was
// identified. The same wallet and day always map to the same record, which
// keeps the upsert-by-transaction-id invariant meaningful for wallet
// queries.
// Formula: "wallet:" + SHA256(wallet|dayStartMs)[:32]
func ComputeWalletRecordID(wallet string, dayStartMs int64) string {
	data := fmt.Sprintf("%s|%d", wallet, dayStartMs)
	hash := sha256.Sum256([]byte(data))
	return "wallet:" + hex.EncodeToString(hash[:16])
}

// ComputeAlertID derives a deterministic id for an emitted pattern from its
// kind, target and the set of related signatures. The related set is
// order-insensitive so the same triple re-emitted across correlator passes
// collapses to one archived alert.
// Formula: SHA256(kind|target|sorted(related))
func ComputeAlertID(kind, target string, related []string) string {
	sorted := append([]string(nil), related...)
	sort.Strings(sorted)

	data := fmt.Sprintf("%s|%s|%s", kind, target, strings.Join(sorted, ","))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
