// Package importer reads diff files into element.Diffs.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/osmada/osmada/adiff"
	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/log"
)

type Importer interface {
	Import(path string) (*element.Diff, error)
}

type ErrorKind int

const (
	// IO errors occur while opening or reading the file.
	IO ErrorKind = iota
	// Format errors occur when the content is not a valid diff.
	Format
)

func (k ErrorKind) String() string {
	if k == Format {
		return "format"
	}
	return "io"
}

// ImportError is returned for all failed imports.
type ImportError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("importing %s (%s error): %s", e.Path, e.Kind, e.Err)
}

func (e *ImportError) Cause() error  { return e.Err }
func (e *ImportError) Unwrap() error { return e.Err }

// AdiffImporter imports augmented diff files. Files ending with .gz or .zst
// are decompressed.
type AdiffImporter struct {
	// Progress shows a progress bar of the read bytes on stderr.
	Progress bool
}

func (i AdiffImporter) Import(path string) (*element.Diff, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImportError{Path: path, Kind: IO, Err: err}
	}
	var r io.ReadCloser = f
	if i.Progress {
		if r, err = wrapProgress(f); err != nil {
			f.Close()
			return nil, &ImportError{Path: path, Kind: IO, Err: err}
		}
	}
	defer r.Close()

	in, err := decompress(path, r)
	if err != nil {
		return nil, &ImportError{Path: path, Kind: Format, Err: err}
	}
	defer in.Close()

	actions, err := adiff.Decode(in)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil, &ImportError{Path: path, Kind: IO, Err: err}
		}
		return nil, &ImportError{Path: path, Kind: Format, Err: err}
	}
	diff := element.NewDiff(path, actions)
	log.Printf("[info] imported %s as diff %s", path, diff.ID)
	return diff, nil
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func decompress(path string, r io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "opening gzip stream")
		}
		return gz, nil
	case ".zst":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "opening zstd stream")
		}
		return dec.IOReadCloser(), nil
	}
	return nopCloser{r}, nil
}

type progressBar struct {
	r   io.ReadCloser
	bar *pb.ProgressBar
}

// wrapProgress returns a reader that tracks the bytes read from f relative
// to its size.
func wrapProgress(f *os.File) (io.ReadCloser, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	bar := pb.New64(fi.Size()).SetUnits(pb.U_BYTES_DEC).SetWidth(79)
	bar.Output = os.Stderr
	bar.Start()

	return progressBar{r: bar.NewProxyReader(f), bar: bar}, nil
}

func (p progressBar) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Close finishes the bar without printing a newline and closes the file.
func (p progressBar) Close() error {
	p.bar.Output = nil
	p.bar.NotPrint = true
	p.bar.Finish()
	fmt.Fprintf(os.Stderr, "\033[2K\r")
	return p.r.Close()
}
