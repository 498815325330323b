// Package uricodec converts between absolute filesystem paths and the
// file:// URI form LSP servers use on the wire, and implements the file
// gates that decide whether a path is safe to open (and the write-safety
// check for edits that land back on disk).
package uricodec

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	lspuri "go.lsp.dev/uri"

	"github.com/lspfacade/mlsp/internal/lsperrors"
)

// MaxFileSize is the largest file the transport will read for an LSP open.
const MaxFileSize = 10 * 1024 * 1024 // 10 MiB

// sniffWindow is how much of a file's head is inspected for a null byte.
const sniffWindow = 8 * 1024

// binaryExtensions is the built-in extension denylist consulted before the
// content sniff.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".7z": true, ".rar": true, ".exe": true,
	".dll": true, ".so": true, ".dylib": true, ".bin": true, ".wasm": true,
	".class": true, ".jar": true, ".o": true, ".a": true, ".pyc": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".woff": true,
	".woff2": true, ".ttf": true, ".otf": true, ".db": true, ".sqlite": true,
}

// ToURI converts an absolute path to its file:// URI form.
func ToURI(path string) string {
	return string(lspuri.File(path))
}

// ToPath converts a file:// URI back to an absolute filesystem path.
func ToPath(uri string) string {
	return lspuri.URI(uri).Filename()
}

// NormalizePath resolves symlinks for an existing file, or falls back to an
// absolute-path resolution when the file does not exist yet.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// IsBinaryExtension reports whether ext (including the leading dot) is a
// built-in binary extension.
func IsBinaryExtension(ext string) bool {
	return binaryExtensions[strings.ToLower(ext)]
}

// sniffBinary reads up to sniffWindow bytes and reports whether any of them
// is a null byte.
func sniffBinary(f *os.File) (bool, error) {
	buf := make([]byte, sniffWindow)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}

// ReadForOpen applies the file gates (exists, not a directory, size limit,
// binary detection) and returns the file's content, or a taxonomy error
// naming which gate rejected it.
func ReadForOpen(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", lsperrors.Wrap(lsperrors.FileNotFound, "cannot stat "+path, err)
	}
	if info.IsDir() {
		return "", lsperrors.New(lsperrors.FileNotFound, path+" is a directory")
	}
	if info.Size() > MaxFileSize {
		return "", lsperrors.New(lsperrors.FileNotReadable, path+" exceeds the 10 MiB size limit")
	}
	if IsBinaryExtension(filepath.Ext(path)) {
		return "", lsperrors.New(lsperrors.FileNotReadable, path+" has a binary extension")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", lsperrors.Wrap(lsperrors.FileNotReadable, "cannot open "+path, err)
	}
	defer f.Close()

	isBinary, err := sniffBinary(f)
	if err != nil {
		return "", lsperrors.Wrap(lsperrors.FileNotReadable, "cannot read "+path, err)
	}
	if isBinary {
		return "", lsperrors.New(lsperrors.FileNotReadable, path+" looks binary (null byte in first 8 KiB)")
	}

	if _, err := f.Seek(0, 0); err != nil {
		return "", lsperrors.Wrap(lsperrors.FileNotReadable, "cannot seek "+path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", lsperrors.Wrap(lsperrors.FileNotReadable, "cannot read "+path, err)
	}
	return string(content), nil
}

// WithinRoot reports whether path (once normalized) falls inside root (once
// normalized), used to gate disk-writing edits to the owning client's
// workspace root.
func WithinRoot(path, root string) bool {
	normPath, err := NormalizePath(path)
	if err != nil {
		return false
	}
	normRoot, err := NormalizePath(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(normRoot, normPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
