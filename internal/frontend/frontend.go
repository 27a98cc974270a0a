// Package frontend turns source files into raw statement trees. Each
// frontend owns one syntax family: tree-sitter grammars for Go, Python,
// Rust, and TypeScript, plus a line-oriented scanner for procedural SQL.
// Frontends emit only the node kinds their dialect classifies; everything
// else stays inline in the enclosing node's span.
package frontend

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/gloss/internal/tree"
)

// Frontend produces a raw tree from one source file.
type Frontend interface {
	// Language returns the dialect name the frontend emits kinds for.
	Language() string

	// Extensions returns the file extensions the frontend claims, with dots.
	Extensions() []string

	// Parse builds the raw tree. Line numbers are 1-based and inclusive;
	// the returned root spans the whole file.
	Parse(path string, src []byte) (*tree.RawNode, error)

	// Dialect returns the kind classifier matching the emitted tree.
	Dialect() *tree.Dialect
}

var byExtension = map[string]Frontend{}

// Register claims a frontend's extensions in the global registry, replacing
// earlier claims on collision.
func Register(f Frontend) {
	for _, ext := range f.Extensions() {
		byExtension[ext] = f
	}
}

// ForPath returns the frontend responsible for the file's extension.
func ForPath(path string) (Frontend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := byExtension[ext]
	if !ok {
		return nil, fmt.Errorf("frontend: %s: unsupported file type %q", path, ext)
	}
	return f, nil
}

// SupportedExtensions lists every registered extension.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	return exts
}

func init() {
	Register(newSQLFrontend())
	Register(newGoFrontend())
	Register(newPythonFrontend())
	Register(newRustFrontend())
	Register(newTypeScriptFrontend())
}
