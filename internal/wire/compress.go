package wire

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// CompressionThreshold is the minimum raw payload size, in bytes, worth
// paying DEFLATE's framing overhead for. Below this the server sends the
// payload uncompressed with FlagCompressed unset.
const CompressionThreshold = 256

var flateWriterPool = sync.Pool{
	New: func() any {
		w, _ := flate.NewWriter(io.Discard, flate.DefaultCompression)
		return w
	},
}

// CompressPayload DEFLATE-compresses raw using a pooled writer, returning
// the compressed stream. The frame header carrying this payload is never
// itself compressed; only the bytes after it are.
func CompressPayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := flateWriterPool.Get().(*flate.Writer)
	defer flateWriterPool.Put(w)
	w.Reset(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressPayload reverses CompressPayload.
func DecompressPayload(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	return io.ReadAll(r)
}
