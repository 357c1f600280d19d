// util/resources.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Unfortunately, unlike io.ReadCloser, the zstd Decoder's Close() method
// doesn't return an error, so we need to make our own custom ReadCloser
// interface.
type ResourceReadCloser interface {
	io.Reader
	Close()
}

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() {}

// LoadResource provides a ResourceReadCloser to access the file at the
// given path; if it is zstd compressed (".zst" suffix), the Reader handles
// decompression transparently.
func LoadResource(path string) (ResourceReadCloser, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	br := bytesReadCloser{bytes.NewReader(b)}
	if strings.HasSuffix(path, ".zst") {
		return zstd.NewReader(br, zstd.WithDecoderConcurrency(0))
	}
	return br, nil
}

// LoadResourceBytes returns the contents of the file at path, transparently
// decompressing zstd-compressed files.
func LoadResourceBytes(path string) ([]byte, error) {
	r, err := LoadResource(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
