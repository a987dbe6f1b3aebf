package zlib

import (
	"compress/zlib"
	"io"

	"google.golang.org/grpc/encoding"
)

const Name = "zlib"

func init() {
	encoding.RegisterCompressor(Compressor{})
}

// Compressor implements gRPC message compression with zlib.
type Compressor struct{}

func (Compressor) Name() string {
	return Name
}

func (Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zlib.NewWriter(w), nil
}

func (Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return zlib.NewReader(r)
}
