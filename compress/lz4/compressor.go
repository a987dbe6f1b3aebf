package lz4

import (
	"io"

	"github.com/pierrec/lz4/v4"
	"google.golang.org/grpc/encoding"
)

const Name = "lz4"

func init() {
	encoding.RegisterCompressor(Compressor{})
}

// Compressor implements gRPC message compression with lz4 frames.
// lz4 trades a slightly worse ratio for very fast decompression, which suits
// payload-heavy invocations better than gzip.
type Compressor struct{}

func (Compressor) Name() string {
	return Name
}

func (Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}
