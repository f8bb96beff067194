package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePrefix = "mert-convert/internal/"

// allowed lists, per internal package, the internal packages it may import.
var allowed = map[string][]string{
	"cli":       {"batch", "config", "convert", "discovery", "encoder", "logging", "model"},
	"batch":     {"discovery", "logging", "model", "runstore"},
	"convert":   {"model", "runstore"},
	"discovery": {"encoder", "model", "runstore"},
	"encoder":   {"model", "runstore"},
	"config":    {"encoder", "runstore"},
	"logging":   {},
	"model":     {},
	"runstore":  {},
}

// confined maps a third-party import prefix to the only packages allowed to
// use it. Terminal UI stays in cli; codecs stay in encoder.
var confined = map[string][]string{
	"github.com/charmbracelet/":      {"cli"},
	"github.com/schollz/progressbar": {"cli"},
	"github.com/jedib0t/go-pretty":   {"cli"},
	"github.com/chai2010/webp":       {"encoder"},
	"golang.org/x/image":             {"encoder"},
	"github.com/gofrs/flock":         {"runstore"},
	"github.com/pelletier/go-toml":   {"config"},
}

func main() {
	violations, err := check("internal")
	if err != nil {
		fmt.Fprintf(os.Stderr, "boundary walk failed: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "architecture boundary violations detected:")
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "- %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("architecture boundary check: OK")
}

func check(root string) ([]string, error) {
	var violations []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		srcPkg := sourcePackage(path)
		if srcPkg == "" {
			return nil
		}
		internalDeps, known := allowed[srcPkg]
		if !known {
			violations = append(violations, fmt.Sprintf("%s: unknown source package %q", path, srcPkg))
			return nil
		}

		file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, imp := range file.Imports {
			impPath := strings.Trim(imp.Path.Value, "\"")
			if tgtPkg, ok := targetPackage(impPath); ok {
				if tgtPkg != srcPkg && !contains(internalDeps, tgtPkg) {
					violations = append(violations, fmt.Sprintf("%s: %s -> %s is forbidden", path, srcPkg, tgtPkg))
				}
				continue
			}
			for prefix, owners := range confined {
				if strings.HasPrefix(impPath, prefix) && !contains(owners, srcPkg) {
					violations = append(violations, fmt.Sprintf("%s: %s may not import %s (reserved for %s)", path, srcPkg, impPath, strings.Join(owners, ", ")))
				}
			}
		}
		return nil
	})
	return violations, err
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sourcePackage(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) < 2 || parts[0] != "internal" {
		return ""
	}
	return parts[1]
}

func targetPackage(importPath string) (string, bool) {
	rest, ok := strings.CutPrefix(importPath, modulePrefix)
	if !ok || rest == "" {
		return "", false
	}
	pkg, _, _ := strings.Cut(rest, "/")
	return pkg, true
}
