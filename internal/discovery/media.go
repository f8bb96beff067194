package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mert-convert/internal/model"
	"mert-convert/internal/runstore"
)

// SVG is left out: it is not a raster format and cannot be re-encoded by
// quality or geometry alone.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
	".bmp":  true,
	".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
}

func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

func KindOf(path string) (model.MediaKind, bool) {
	switch {
	case IsImage(path):
		return model.KindImage, true
	case IsVideo(path):
		return model.KindVideo, true
	default:
		return "", false
	}
}

func ImageExtensions() []string { return sortedKeys(imageExtensions) }
func VideoExtensions() []string { return sortedKeys(videoExtensions) }

// Asset is a discovered media file together with the root it was found under,
// which the scheduler uses to mirror directory structure.
type Asset struct {
	Path string
	Root string
	Kind model.MediaKind
}

type MediaSet struct {
	Images []Asset
	Videos []Asset
}

func (s MediaSet) Len() int {
	return len(s.Images) + len(s.Videos)
}

// FindMedia collects files of the wanted kinds beneath roots. A root may be a
// file (kept when its extension matches) or a directory (walked
// recursively). Directories listed in skipDirs are not descended into when
// they sit below a root, so an output tree inside an input tree is never
// picked up again. Any walk error aborts discovery. Output is sorted by path
// and free of duplicates.
func FindMedia(roots, skipDirs []string, kinds ...model.MediaKind) (MediaSet, error) {
	want := make(map[model.MediaKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, dir := range skipDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return MediaSet{}, fmt.Errorf("resolve %s: %w", dir, err)
		}
		skip[abs] = true
	}
	seen := make(map[string]bool)
	var set MediaSet

	add := func(path, root string) {
		kind, ok := KindOf(path)
		if !ok || !want[kind] || seen[path] {
			return
		}
		seen[path] = true
		a := Asset{Path: path, Root: root, Kind: kind}
		if kind == model.KindImage {
			set.Images = append(set.Images, a)
		} else {
			set.Videos = append(set.Videos, a)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return MediaSet{}, fmt.Errorf("discover %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root, filepath.Dir(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && skip[filepath.Clean(path)] {
					return fs.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && !runstore.IsLockFile(path) {
				add(path, root)
			}
			return nil
		})
		if err != nil {
			return MediaSet{}, fmt.Errorf("discover %s: %w", root, err)
		}
	}

	byPath := func(list []Asset) {
		sort.Slice(list, func(i, j int) bool { return list[i].Path < list[j].Path })
	}
	byPath(set.Images)
	byPath(set.Videos)
	return set, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
