package batch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"mert-convert/internal/discovery"
)

// OutputPathFor derives where asset's conversion is written. In mirror mode
// the path relative to the asset's root is kept; flatten mode keeps only the
// base name. The extension always becomes the kind's output extension.
func OutputPathFor(asset discovery.Asset, outputDir string, flatten bool) string {
	rel := filepath.Base(asset.Path)
	if !flatten && strings.TrimSpace(asset.Root) != "" {
		if r, err := filepath.Rel(asset.Root, asset.Path); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			rel = r
		}
	}
	rel = norm.NFC.String(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + asset.Kind.OutputExt()
	return filepath.Join(outputDir, rel)
}

// CollisionResolver hands out output paths so no two inputs in a batch write
// the same file. The first claimant keeps the requested name; later ones get
// "name-2.ext", "name-3.ext" and so on. Methods are goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // output key -> input path
	counters map[string]int    // requested key -> next suffix
}

func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

func (cr *CollisionResolver) Resolve(input, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	key := collisionKey(requested)
	owner, exists := cr.owners[key]
	if !exists || owner == input {
		cr.owners[key] = input
		return requested
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	counter := cr.counters[key]
	if counter < 2 {
		counter = 2
	}
	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, counter, ext))
		cKey := collisionKey(candidate)
		cOwner, cExists := cr.owners[cKey]
		if !cExists || cOwner == input {
			cr.counters[key] = counter + 1
			cr.owners[cKey] = input
			return candidate
		}
		counter++
	}
}

// Case-insensitive filesystems (macOS default, Windows) treat these as one file.
func collisionKey(path string) string {
	return strings.ToLower(norm.NFC.String(filepath.Clean(path)))
}
