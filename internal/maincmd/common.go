package maincmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/tangle/internal/cachekey"
	"github.com/mna/tangle/lang/compiler"
	"github.com/mna/tangle/lang/linker"
)

// compilerOptions translates the CLI's own flags into compiler.Options.
func (c *Cmd) compilerOptions() compiler.Options {
	return compiler.Options{ShellEnabled: c.ShellFlag}
}

// compileAndLink reads every named document, compiles it and links the
// result into a single Program, or returns the first fatal error
// encountered (spec.md §4.2/§4.3's "report the first failure"). With
// --cache-key, it also prints a content hash of the documents it read
// before returning (spec.md §6 "Persisted state").
func (c *Cmd) compileAndLink(stdio mainer.Stdio, paths []string) (*linker.Program, error) {
	l := linker.New()
	opts := c.compilerOptions()
	var hashInputs []cachekey.File
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if c.CacheKey {
			hashInputs = append(hashInputs, cachekey.File{Path: path, Content: src})
		}
		obj, err := compiler.Compile(path, src, opts)
		if err != nil {
			return nil, err
		}
		l.Add(path, obj)
	}
	if c.CacheKey {
		sum, err := cachekey.Sum(hashInputs)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(stdio.Stdout, "cachekey: %s\n", sum)
	}
	return l.Link()
}

// checkOutputPath enforces spec.md §6's filesystem rules: no absolute
// paths without --allow-absolute-paths, and no `../` path-traversal
// segments regardless of the flag.
func (c *Cmd) checkOutputPath(path string) error {
	if strings.Contains(path, "..") {
		for _, seg := range strings.Split(path, "/") {
			if seg == ".." {
				return fmt.Errorf("%s: path traversal (\"..\") is not allowed", path)
			}
		}
	}
	if !c.AllowAbsolutePaths {
		if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "~/") {
			return fmt.Errorf("%s: absolute paths require --allow-absolute-paths", path)
		}
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
