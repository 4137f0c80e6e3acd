// Package websocket implements the wire layer of the WebSocket
// protocol (RFC 6455): a bit-exact frame codec, a framer that turns a
// byte stream into a sequence of frames, and a connection state machine
// that assembles frames into messages.
//
// It operates on an already-upgraded byte stream. The HTTP opening
// handshake, subprotocol and extension negotiation, TLS, and I/O
// multiplexing are all out of scope: callers perform the upgrade with
// their HTTP stack of choice and hand the resulting stream to
// [NewFramer] and [NewConn].
//
// A [Conn] is not safe for concurrent use. It has no internal
// goroutines, timers, or buffers beyond its framer's read and write
// buffers and the partial-message frame buffer; every blocking point is
// a read or write on the underlying stream. Callers that share a connection between goroutines must
// serialize access themselves.
//
// WebSocket [extensions] and [subprotocols] are not supported.
//
// [extensions]: https://www.iana.org/assignments/websocket/websocket.xhtml#extension-name
// [subprotocols]: https://www.iana.org/assignments/websocket/websocket.xhtml#subprotocol-name
package websocket
