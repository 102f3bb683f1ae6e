// Package cachekey computes a stable content hash over a set of input
// files, for callers (build systems, the CLI's debug flag) that want a
// cache key for a tangling run. The core pipeline never reads or writes
// it (spec.md §6 "Persisted state").
package cachekey

import (
	"encoding/hex"
	"sort"

	"github.com/minio/highwayhash"
)

// key is fixed so that a given set of inputs always hashes to the same
// digest across runs and machines; it is not a secret.
var key = []byte("tangle-cachekey-v1-0123456789ABC")

// File is one input to be folded into the key: its logical path (for
// stable sort order, not hashed for its own sake beyond disambiguating
// identical contents at different paths) and its raw bytes.
type File struct {
	Path    string
	Content []byte
}

// Sum hashes files sorted by Path, so the result does not depend on the
// order callers happened to read them in. Two calls with the same set of
// (Path, Content) pairs always produce the same digest.
func Sum(files []File) (string, error) {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h, err := highwayhash.New64(key)
	if err != nil {
		return "", err
	}
	for _, f := range sorted {
		if _, err := h.Write([]byte(f.Path)); err != nil {
			return "", err
		}
		if _, err := h.Write([]byte{0}); err != nil {
			return "", err
		}
		if _, err := h.Write(f.Content); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
