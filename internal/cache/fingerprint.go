package cache

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

// Fingerprint computes a 64-bit content hash over (kind, stable params,
// dependency fingerprints), as required by the data model's Fingerprint
// definition. Two calls with identical arguments always produce the same
// value, which is what lets two Pipelines sharing a Step prefix share a
// cache entry (Invariant 1).
func Fingerprint(kind string, params []string, deps ...figmodel.Fingerprint) figmodel.Fingerprint {
	h := xxhash.New()
	_, _ = h.WriteString(kind)
	_, _ = h.Write([]byte{0})
	for _, p := range params {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	var buf [8]byte
	for _, d := range deps {
		binary.LittleEndian.PutUint64(buf[:], uint64(d))
		_, _ = h.Write(buf[:])
	}
	return figmodel.Fingerprint(h.Sum64())
}

// IndexKey computes the fingerprint used to key the remote-index namespace:
// hash(file-key, container-node-ids), as named in spec.md §4.A.
func IndexKey(fileKey string, containerNodeIDs []string) figmodel.Fingerprint {
	params := append([]string{fileKey}, containerNodeIDs...)
	return Fingerprint("remote-index", params)
}

// HexPrefix returns the first two hex characters of fp, used to shard the
// byproducts directory (.figx-out/caches/byproducts/<hash-prefix>/<fp>).
func HexPrefix(fp figmodel.Fingerprint) string {
	s := strconv.FormatUint(uint64(fp), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s[:2]
}

// String renders a fingerprint as the fixed-width hex string used for
// directory/file names.
func String(fp figmodel.Fingerprint) string {
	s := strconv.FormatUint(uint64(fp), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
