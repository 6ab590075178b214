package brick

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// HashEntry is one (path, bytes) pair folded into a content hash.
type HashEntry struct {
	RelPath string
	Bytes   []byte
}

// HashEntries computes sha256(entry0.RelPath ‖ 0x00 ‖ entry0.Bytes ‖
// entry1.RelPath ‖ ...) over entries sorted by RelPath, truncated to 40
// hex chars (spec.md §3 invariant iii). This is the building block for
// both the resolver's per-ref cache key (§4.3, hashing a whole
// directory tree) and a brick's ContentHash (below, hashing the template
// files, the hook scripts and the dependency manifest).
func HashEntries(entries []HashEntry) string {
	sorted := make([]HashEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })

	h := sha256.New()
	for _, e := range sorted {
		h.Write([]byte(e.RelPath))
		h.Write([]byte{0x00})
		h.Write(e.Bytes)
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:40]
}

// ContentHash computes a Brick's content hash: sha256 of its dependency
// manifest bytes and its template-file manifest (spec.md §3 invariant
// iii), extended here to also cover hook script bytes so that the
// invariant's promise — equal ContentHash implies byte-equal
// templateFiles *and* hook bytes — actually holds.
func ContentHash(b Brick) string {
	var entries []HashEntry
	for _, f := range b.TemplateFiles {
		entries = append(entries, HashEntry{RelPath: "files/" + f.RelPath, Bytes: f.Bytes})
	}
	if b.Hooks.PreGen != nil {
		entries = append(entries, HashEntry{RelPath: "hooks/" + b.Hooks.PreGen.RelPath, Bytes: b.Hooks.PreGen.Bytes})
	}
	if b.Hooks.PostGen != nil {
		entries = append(entries, HashEntry{RelPath: "hooks/" + b.Hooks.PostGen.RelPath, Bytes: b.Hooks.PostGen.Bytes})
	}
	if b.Hooks.Manifest != nil {
		entries = append(entries, HashEntry{RelPath: "hooks/" + b.Hooks.ManifestPath, Bytes: b.Hooks.Manifest})
	}
	return HashEntries(entries)
}
