package websocket

import (
	"bufio"
	"io"
)

// Framer adapts a bidirectional byte stream into a sequence of
// [Frame]s. It owns the stream exclusively: reads are buffered, and
// writes are buffered until [Framer.Flush] is called or the write buffer
// fills up; a frame larger than the buffer may therefore reach the
// stream in parts before the flush.
type Framer struct {
	bufio  *bufio.ReadWriter
	closer io.Closer
}

// NewFramer wraps an already-upgraded byte stream. If the stream also
// implements [io.Closer], [Framer.Close] closes it.
func NewFramer(rw io.ReadWriter) *Framer {
	f := &Framer{
		bufio: bufio.NewReadWriter(bufio.NewReader(rw), bufio.NewWriter(rw)),
	}
	if c, ok := rw.(io.Closer); ok {
		f.closer = c
	}
	return f
}

// ReadFrame reads and returns the next frame from the stream. At the
// end of the stream it returns a nil frame with a nil error, but only
// on a frame boundary: EOF inside a frame is a [ProtocolError].
func (f *Framer) ReadFrame() (*Frame, error) {
	return readFrame(f.bufio.Reader)
}

// WriteFrame serializes one frame into the write buffer.
// Call [Framer.Flush] to put it on the wire.
func (f *Framer) WriteFrame(frame *Frame) error {
	return frame.write(f.bufio.Writer)
}

// Flush writes any buffered frames to the underlying stream.
func (f *Framer) Flush() error {
	return f.bufio.Flush()
}

// Close flushes buffered frames and closes the underlying stream,
// if it is closable.
func (f *Framer) Close() error {
	err := f.Flush()
	if f.closer != nil {
		if cerr := f.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
