// Package scratch manages per-request temporary files and directories with
// guaranteed cleanup.
//
// Every acquisition returns a cleanup func alongside the path; callers defer
// it immediately so scratch space is released on success, parse error, and
// validation failure alike. Scratch files are created per-invocation and
// never shared across requests, so no file locking is needed.
package scratch

import (
	"io"
	"log/slog"
	"os"

	"ledgerflow/internal/errs"
)

// Spool copies r into a new temporary file under dir and returns its path.
// The cleanup func removes the file; it is safe to call more than once.
func Spool(dir, pattern string, r io.Reader) (string, func(), error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", nil, errs.Resource(dir, err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("scratch file not removed", "path", path, "error", err)
		}
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		cleanup()
		return "", nil, errs.Resource(path, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, errs.Resource(path, err)
	}
	return path, cleanup, nil
}

// Dir creates a new temporary directory under parent. The cleanup func
// removes the directory and everything in it.
func Dir(parent, pattern string) (string, func(), error) {
	path, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return "", nil, errs.Resource(parent, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("scratch dir not removed", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}
