// Package idhash computes deterministic identifiers and digests.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"trendchop/internal/features"
)

// ComputeParamsID computes a deterministic id of the engine parameters using SHA256.
// Formula: SHA256(windows|er_enter|er_exit|ts_enter|ts_ref|ema_alpha), windows ascending
// and comma-joined, floats in shortest round-trip form.
// Returns hex-encoded hash (64 characters).
func ComputeParamsID(p features.Params) string {
	windows := p.SortedWindows()
	parts := make([]string, len(windows))
	for i, w := range windows {
		parts[i] = strconv.Itoa(w)
	}

	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		strings.Join(parts, ","),
		formatFloat(p.Thresholds.EREnter),
		formatFloat(p.Thresholds.ERExit),
		formatFloat(p.Thresholds.TSEnter),
		formatFloat(p.TSRef),
		formatFloat(p.EMAAlpha),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeContentDigest returns the hex-encoded SHA256 of data.
// Equal digests across runs mean byte-identical output files.
func ComputeContentDigest(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
