package snappy

import (
	"io"

	"github.com/golang/snappy"
	"google.golang.org/grpc/encoding"
)

const Name = "snappy"

func init() {
	encoding.RegisterCompressor(Compressor{})
}

// Compressor implements gRPC message compression with snappy framing.
type Compressor struct{}

func (Compressor) Name() string {
	return Name
}

func (Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	// The buffered writer flushes complete frames on Close. Close must run
	// before the message is sent or the tail of the data never reaches the
	// stream; gRPC closes the writer for us.
	return snappy.NewBufferedWriter(w), nil
}

func (Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return snappy.NewReader(r), nil
}
