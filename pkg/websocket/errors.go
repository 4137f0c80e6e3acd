package websocket

import "fmt"

// ProtocolError reports a violation of the WebSocket framing protocol,
// either by the remote endpoint or by a local call that the connection's
// state machine refused. It carries the close [StatusCode] that describes
// the violation to the peer.
type ProtocolError struct {
	Code   StatusCode
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("websocket protocol error (%s): %s", e.Code, e.Reason)
}

// ClosedError reports that the remote endpoint closed the connection
// with a status code other than [StatusNormalClosure]; a close frame
// without a status code ([StatusNotReceived]) is not an error either. It is returned
// by [Conn.Read] and [Conn.ReadFrame] after the connection transitions
// to its closed state.
type ClosedError struct {
	Code   StatusCode
	Reason string
}

func (e *ClosedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("websocket connection closed (%s)", e.Code)
	}
	return fmt.Sprintf("websocket connection closed (%s): %s", e.Code, e.Reason)
}

// protocolError constructs a [ProtocolError]
// with the default close status code 1002.
func protocolError(reason string) *ProtocolError {
	return &ProtocolError{Code: StatusProtocolError, Reason: reason}
}
