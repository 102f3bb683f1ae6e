package sink

import (
	"bytes"
	"context"
	"io"

	"github.com/viant/afs"
)

// Stream is the default Sink: it writes tangled output verbatim to an
// io.Writer (spec.md §4.5).
type Stream struct {
	w io.Writer
}

// NewStream returns a Stream writing to w, e.g. os.Stdout for `tangle call`.
func NewStream(w io.Writer) *Stream {
	return &Stream{w: w}
}

func (s *Stream) Write(p []byte) error {
	_, err := s.w.Write(p)
	return err
}

// FileStream buffers a materialized `file="..."` block's bytes and uploads
// them as a single unit through github.com/viant/afs on Close, so a future
// non-local destination (S3, GCS) can be substituted without touching
// lang/vm's contract with Sink.
type FileStream struct {
	*Stream
	buf *bytes.Buffer
	ctx context.Context
	fs  afs.Service
	url string
}

// NewFileStream returns a Sink that buffers writes in memory and uploads
// them to url via fs when Close is called.
func NewFileStream(ctx context.Context, fs afs.Service, url string) *FileStream {
	buf := &bytes.Buffer{}
	return &FileStream{Stream: NewStream(buf), buf: buf, ctx: ctx, fs: fs, url: url}
}

// Close uploads the buffered content to the destination URL.
func (f *FileStream) Close() error {
	return f.fs.Upload(f.ctx, f.url, 0o644, bytes.NewReader(f.buf.Bytes()))
}
