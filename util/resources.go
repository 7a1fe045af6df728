// util/resources.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Unlike io.ReadCloser, the zstd Decoder's Close() method doesn't return
// an error, so we need our own ReadCloser interface.
type ResourceReadCloser interface {
	io.Reader
	Close()
}

type fileReadCloser struct {
	*bufio.Reader
	f *os.File
}

func (r fileReadCloser) Close() { r.f.Close() }

type zstdReadCloser struct {
	*zstd.Decoder
	f *os.File
}

func (r zstdReadCloser) Close() {
	r.Decoder.Close()
	r.f.Close()
}

// ResolveResource returns the path of the file to read for path: path
// itself if it exists, otherwise path with a .zst suffix if that exists.
// fs.ErrNotExist is returned if neither does.
func ResolveResource(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if filepath.Ext(path) != ".zst" {
		if _, err := os.Stat(path + ".zst"); err == nil {
			return path + ".zst", nil
		}
	}
	return "", &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
}

// OpenResource opens the specified file, falling back to a zstd
// compressed version of it if the plain file isn't present. Compressed
// files are decompressed transparently.
func OpenResource(path string) (ResourceReadCloser, error) {
	path, err := ResolveResource(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)

	if filepath.Ext(path) == ".zst" {
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(0))
		if err != nil {
			f.Close()
			return nil, err
		}
		return zstdReadCloser{Decoder: zr, f: f}, nil
	}

	return fileReadCloser{Reader: br, f: f}, nil
}

func ReadResource(path string) ([]byte, error) {
	r, err := OpenResource(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
