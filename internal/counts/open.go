// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package counts

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// NotFoundError is returned when a count matrix source does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("counts: %s not found: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Open returns a reader for the data held at path. Paths with a gs://
// prefix are read from Google Cloud Storage, all other paths are read
// from the local file system. Compressed data is transparently
// decompressed. The caller must close the returned io.ReadCloser.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if strings.HasPrefix(path, "gs://") {
		rc, err = openObject(ctx, path)
	} else {
		rc, err = os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			err = &NotFoundError{Path: path, Err: err}
		}
	}
	if err != nil {
		return nil, err
	}
	r, err := decompress(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("counts: %s: %w", path, err)
	}
	return r, nil
}

// openObject returns a reader for the gs://bucket/object at path.
func openObject(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, object, ok := splitObjectPath(path)
	if !ok {
		return nil, fmt.Errorf("counts: invalid object path: %q", path)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, &NotFoundError{Path: path, Err: err}
		}
		return nil, err
	}
	return &readCloser{Reader: r, close: func() error {
		err := r.Close()
		cerr := client.Close()
		if err == nil {
			err = cerr
		}
		return err
	}}, nil
}

func splitObjectPath(path string) (bucket, object string, ok bool) {
	path = strings.TrimPrefix(path, "gs://")
	i := strings.Index(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

type compression int

const (
	none compression = iota
	gzipped
	zipped
	xzipped
	zlibbed
	bzipped
)

// Byte code signatures from https://stackoverflow.com/a/19127748/199475
var signatures = []struct {
	kind  compression
	magic []byte
}{
	{kind: gzipped, magic: []byte{0x1f, 0x8b, 0x08}},
	{kind: zipped, magic: []byte{0x50, 0x4b, 0x03, 0x04}},
	{kind: xzipped, magic: []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{kind: zlibbed, magic: []byte{0x78, 0x9c}},
	{kind: bzipped, magic: []byte{0x42, 0x5a, 0x68}},
}

func detectCompression(r *bufio.Reader) compression {
	head, _ := r.Peek(6)
	for _, s := range signatures {
		if bytes.HasPrefix(head, s.magic) {
			return s.kind
		}
	}
	return none
}

// decompress wraps rc in a decompressor determined by the leading bytes
// of the stream. Closing the returned io.ReadCloser closes rc.
func decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	var r io.Reader
	switch detectCompression(br) {
	case gzipped:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		r = gz
	case zipped:
		zr := zipstream.NewReader(br)
		_, err := zr.Next()
		if err != nil {
			return nil, err
		}
		r = zr
	case xzipped:
		xr, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, err
		}
		r = xr
	case zlibbed:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, err
		}
		r = zr
	case bzipped:
		r = bzip2.NewReader(br)
	default:
		r = br
	}
	return &readCloser{Reader: r, close: rc.Close}, nil
}

// readCloser adds a Close method to a decompressing reader.
type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }
