package gzip

import (
	"compress/gzip"
	"io"

	"google.golang.org/grpc/encoding"
)

// Name is the compressor name clients pass to the compressor option.
const Name = "gzip"

func init() {
	encoding.RegisterCompressor(Compressor{})
}

// Compressor implements gRPC message compression with gzip.
type Compressor struct{}

func (Compressor) Name() string {
	return Name
}

func (Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}
