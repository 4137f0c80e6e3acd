package websocket

import (
	"crypto/rand"
	"errors"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Conn assembles frames read from a [Framer] into messages, answers
// ping frames, and enforces the protocol's ordering and lifecycle
// rules. It is single-threaded: callers serialize their own access.
type Conn struct {
	framer *Framer
	logger zerolog.Logger

	// mask, when set, is applied to every outgoing frame. It is
	// immutable after construction.
	mask []byte

	// strict enables UTF-8 validation of received text messages.
	strict bool

	// closed is monotonic: once true, sends fail and reads return
	// nothing. It flips on sending or receiving a close frame, and
	// on any protocol error during a read.
	closed bool

	// frames buffers the fragments of a partially received message.
	// When non-empty, the first frame is text or binary and the rest
	// are continuations; only the last may have its FIN bit set.
	frames []*Frame
}

// Message is the result of defragmenting one or more data frames, as
// defined in https://datatracker.ietf.org/doc/html/rfc6455#section-5.6.
// Opcode is [OpcodeText] or [OpcodeBinary], taken from the message's
// first frame.
type Message struct {
	Opcode Opcode
	Data   []byte
}

// Option adjusts a [Conn] during construction.
type Option func(*Conn)

// WithMask sets a literal 4-byte masking key to apply
// to all outgoing frames.
func WithMask(key [4]byte) Option {
	return func(c *Conn) {
		c.mask = key[:]
	}
}

// WithGeneratedMask draws a random 4-byte masking key to apply to all
// outgoing frames. The key is per-connection, not per-frame.
func WithGeneratedMask() Option {
	return func(c *Conn) {
		key := make([]byte, maskKeySize)
		_, _ = rand.Read(key) // Never fails, per crypto/rand docs.
		c.mask = key
	}
}

// WithLogger attaches a logger for frame-level trace events.
// The default is [zerolog.Nop].
func WithLogger(l zerolog.Logger) Option {
	return func(c *Conn) {
		c.logger = l
	}
}

// WithStrictText makes [Conn.Read] validate that received text messages
// are valid UTF-8, closing the connection with [StatusInvalidData] on a
// violation, as RFC 6455 section 8.1 requires. The default is lenient.
func WithStrictText() Option {
	return func(c *Conn) {
		c.strict = true
	}
}

// NewConn wraps a framer in a connection state machine.
// The connection takes exclusive ownership of the framer.
func NewConn(f *Framer, opts ...Option) *Conn {
	c := &Conn{framer: f, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Closed reports whether a close frame was sent or received,
// or a protocol error terminated the connection.
func (c *Conn) Closed() bool {
	return c.closed
}

// Read returns the next complete message: it reads frames (answering
// pings along the way) until a frame with the FIN bit set completes the
// message, then returns the fragments' payloads concatenated in arrival
// order. At the end of the stream, or once the connection is closed, it
// returns a nil message with a nil error.
func (c *Conn) Read() (*Message, error) {
	if err := c.framer.Flush(); err != nil {
		return nil, err
	}

	for {
		frame, err := c.ReadFrame(nil)
		if err != nil {
			return nil, err
		}
		if frame == nil {
			return nil, nil
		}

		if n := len(c.frames); n > 0 && c.frames[n-1].Fin {
			return c.finalizeMessage()
		}
	}
}

// finalizeMessage concatenates the buffered fragments
// into a [Message] and resets the buffer.
func (c *Conn) finalizeMessage() (*Message, error) {
	op := c.frames[0].Opcode

	n := 0
	for _, f := range c.frames {
		n += len(f.Payload)
	}
	data := make([]byte, 0, n)
	for _, f := range c.frames {
		data = append(data, f.Payload...)
	}
	c.frames = c.frames[:0]

	if c.strict && op == OpcodeText && !utf8.Valid(data) {
		err := &ProtocolError{Code: StatusInvalidData, Reason: "invalid UTF-8 in text message"}
		return nil, c.closeOnError(err)
	}

	c.logger.Debug().Str("opcode", op.String()).Int("length", len(data)).
		Msg("received WebSocket data message")

	return &Message{Opcode: op, Data: data}, nil
}

// ReadFrame reads one frame, yields it to the callback (if any),
// applies it to the connection's state, and returns it. It returns a
// nil frame with a nil error at the end of the stream and after the
// connection is closed.
//
// On a [ProtocolError], the connection sends a close frame carrying the
// error's status code before surfacing the error; on any other read
// failure it attempts to send a close frame with [StatusProtocolError],
// suppressing failures of that attempt.
func (c *Conn) ReadFrame(callback func(*Frame)) (*Frame, error) {
	if c.closed {
		return nil, nil
	}

	frame, err := c.framer.ReadFrame()
	if err != nil {
		return nil, c.closeOnError(err)
	}
	if frame == nil {
		return nil, nil
	}

	c.logger.Trace().Bool("fin", frame.Fin).Str("opcode", frame.Opcode.String()).
		Int("length", len(frame.Payload)).Msg("received WebSocket frame")

	if callback != nil {
		callback(frame)
	}

	if err := c.handle(frame); err != nil {
		return nil, c.closeOnError(err)
	}
	return frame, nil
}

// handle applies a received frame to the connection's state: data
// frames are buffered under the fragmentation rules of RFC 6455
// section 5.4, control frames act immediately.
func (c *Conn) handle(frame *Frame) error {
	switch frame.Opcode {
	case OpcodeContinuation:
		if len(c.frames) == 0 {
			return protocolError("received unexpected continuation frame")
		}
		c.frames = append(c.frames, frame)

	case OpcodeText, OpcodeBinary:
		if len(c.frames) > 0 {
			return protocolError("received " + frame.Opcode.String() + " frame, but expecting a continuation")
		}
		c.frames = append(c.frames, frame)

	// "If an endpoint receives a Close frame and did not previously
	// send a Close frame, the endpoint MUST send a Close frame in
	// response" - this connection does not send that reply: receiving
	// only flips the state to closed, and once closed, [Conn.SendClose]
	// and [Conn.Close] send no close frame either.
	case OpcodeClose:
		// A malformed payload is a generic read-path protocol error,
		// announced to the peer like any other: the connection must
		// still be open when the error reaches closeOnError.
		status, reason, err := ParseClose(frame.Payload)
		if err != nil {
			return err
		}
		c.closed = true
		c.logger.Trace().Str("close_status", status.String()).Str("close_reason", reason).
			Msg("received WebSocket close control frame")
		if status != StatusNotReceived && status != StatusNormalClosure {
			return &ClosedError{Code: status, Reason: reason}
		}

	// "An endpoint MUST be capable of handling control
	// frames in the middle of a fragmented message".
	case OpcodePing:
		return c.send(frame.Reply(c.mask))

	case OpcodePong:
		// Unsolicited pongs are allowed and ignored.

	default:
		c.logger.Warn().Str("opcode", frame.Opcode.String()).
			Msg("ignoring WebSocket frame with unrecognized opcode")
	}

	return nil
}

// closeOnError announces a read-path failure to the peer with a close
// frame, then surfaces the original error. The close attempt itself is
// best-effort: it is a no-op once the connection is closed, and its own
// failures are only logged.
func (c *Conn) closeOnError(err error) error {
	code := StatusProtocolError
	reason := err.Error()

	var perr *ProtocolError
	if errors.As(err, &perr) {
		code, reason = perr.Code, perr.Reason
	}

	if cerr := c.SendClose(code, reason); cerr != nil {
		c.logger.Debug().Err(cerr).Msg("failed to send WebSocket close control frame after error")
	}

	return err
}

// SendText sends an unfragmented text message.
func (c *Conn) SendText(text string) error {
	return c.send(NewTextFrame(text, c.mask))
}

// SendBinary sends an unfragmented binary message.
func (c *Conn) SendBinary(data []byte) error {
	return c.send(NewBinaryFrame(data, c.mask))
}

// SendPing sends a ping control frame with up to 125 payload bytes.
// The peer's pong is handled (and discarded) by [Conn.Read].
func (c *Conn) SendPing(data []byte) error {
	return c.send(NewPingFrame(data, c.mask))
}

// SendClose sends a close control frame and transitions the connection
// to its closed state. On an already-closed connection it is a no-op,
// so it is safe to call from error paths; at most one close frame ever
// goes out. Status codes that must not appear on the wire are replaced
// with [StatusProtocolError], and overlong reasons are truncated.
func (c *Conn) SendClose(status StatusCode, reason string) error {
	if c.closed {
		return nil
	}

	status, reason = sanitizeClose(status, reason)
	err := c.send(NewCloseFrame(status, reason, c.mask))

	// Closed even if the write failed: no more frames may follow.
	c.closed = true

	if err == nil {
		c.logger.Trace().Str("close_status", status.String()).Str("close_reason", reason).
			Msg("sent WebSocket close control frame")
	}
	return err
}

// Close sends a close frame with [StatusNormalClosure] (unless the
// connection is already closed, whether by a close frame sent or
// received, or by a read error) and closes the framer together with its
// stream.
func (c *Conn) Close() error {
	var err error
	if !c.closed {
		err = c.SendClose(StatusNormalClosure, "")
	}
	if cerr := c.framer.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteFrame sends a caller-constructed frame, for hosts that need raw
// frame access (e.g. outgoing fragmentation). The connection's mask is
// not applied: the caller sets the frame's own masking key.
func (c *Conn) WriteFrame(frame *Frame) error {
	return c.send(frame)
}

// send writes one frame and flushes it to the wire.
// Sending on a closed connection is a [ProtocolError].
func (c *Conn) send(frame *Frame) error {
	if c.closed {
		return protocolError("cannot send on a closed connection")
	}

	if err := c.framer.WriteFrame(frame); err != nil {
		return err
	}
	if err := c.framer.Flush(); err != nil {
		return err
	}

	c.logger.Trace().Bool("fin", frame.Fin).Str("opcode", frame.Opcode.String()).
		Int("length", len(frame.Payload)).Msg("sent WebSocket frame")
	return nil
}
