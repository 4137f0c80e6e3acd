package websocket

import (
	"encoding/binary"
	"strconv"
)

// StatusCode indicates a reason for the closure of an established
// WebSocket connection, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.4.
//
// See also https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
type StatusCode uint16

const (
	// The purpose for which the connection was established has been fulfilled.
	StatusNormalClosure StatusCode = iota + 1000
	// An endpoint is going away, such as a server shutting down.
	StatusGoingAway
	// An endpoint is terminating the connection due to a protocol error.
	StatusProtocolError
	// An endpoint received a type of data it cannot accept.
	StatusUnsupportedData
	// Reserved. The specific meaning might be defined in the future.
	_
	// Reserved value, MUST NOT be sent on the wire. Designates that no
	// status code was actually present in the close frame's payload.
	StatusNotReceived
	// Reserved value, MUST NOT be sent on the wire. Designates that the
	// connection was closed abnormally, without a close frame.
	StatusClosedAbnormally
	// An endpoint received data inconsistent with the message's type,
	// e.g. non-UTF-8 data within a text message.
	StatusInvalidData
	// An endpoint received a message that violates its policy.
	StatusPolicyViolation
	// An endpoint received a message that is too big for it to process.
	StatusMessageTooBig
	// A client expected the server to negotiate one or more extensions,
	// but the server didn't return them in the handshake response.
	StatusMandatoryExtension
	// A remote endpoint encountered an unexpected condition that
	// prevented it from fulfilling the request.
	StatusInternalError
	// See https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
	StatusServiceRestart
	// See https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
	StatusTryAgainLater
	// See https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
	StatusBadGateway
	// Reserved value, MUST NOT be sent on the wire. Designates a failure
	// to perform a TLS handshake.
	StatusTLSHandshake
)

// String returns the status code's name, or its number if it's unrecognized.
func (s StatusCode) String() string {
	switch s {
	case StatusNormalClosure:
		return "normal closure"
	case StatusGoingAway:
		return "going away"
	case StatusProtocolError:
		return "protocol error"
	case StatusUnsupportedData:
		return "unsupported data"
	case StatusNotReceived:
		return "status not received"
	case StatusClosedAbnormally:
		return "closed abnormally"
	case StatusInvalidData:
		return "invalid data"
	case StatusPolicyViolation:
		return "policy violation"
	case StatusMessageTooBig:
		return "message too big"
	case StatusMandatoryExtension:
		return "expected extension negotiation"
	case StatusInternalError:
		return "internal error"
	case StatusServiceRestart:
		return "service restart"
	case StatusTryAgainLater:
		return "try again later"
	case StatusBadGateway:
		return "bad gateway"
	case StatusTLSHandshake:
		return "TLS handshake"
	default:
		return strconv.Itoa(int(s))
	}
}

// maxCloseReason is the maximum length of a connection closing reason.
// The difference from [maxControlPayload] is due to the status code.
const maxCloseReason = maxControlPayload - 2

// closePayload encodes a status code and an optional UTF-8 reason as a
// close frame payload: 2 big-endian bytes followed by the reason bytes.
// A zero status code with an empty reason encodes as an empty payload.
func closePayload(status StatusCode, reason string) []byte {
	if status == 0 && reason == "" {
		return nil
	}

	p := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(p[:2], uint16(status))
	copy(p[2:], reason)
	return p
}

// ParseClose extracts the [StatusCode] and the optional UTF-8 reason
// from a close frame's payload. An empty payload is valid and yields
// [StatusNotReceived]; a 1-byte payload is a [ProtocolError].
func ParseClose(payload []byte) (StatusCode, string, error) {
	switch len(payload) {
	case 0:
		return StatusNotReceived, "", nil
	case 1:
		return 0, "", protocolError("close frame payload of 1 byte")
	default:
		return StatusCode(binary.BigEndian.Uint16(payload[:2])), string(payload[2:]), nil
	}
}

// sanitizeClose prepares an outgoing status code and reason for the
// wire. Only codes an endpoint may actually send survive: the assigned
// RFC 7.4 codes minus the reserved ones (1004, 1005, 1006, 1015), plus
// the registered/private ranges 3000-4999. Everything else degrades to
// [StatusProtocolError]. The reason is truncated to fit in a control
// frame alongside the 2-byte status code.
func sanitizeClose(status StatusCode, reason string) (StatusCode, string) {
	switch {
	case status >= 3000 && status <= 4999:
		// Registered and private-use codes pass through uninterpreted.
	case status == StatusNormalClosure, status == StatusGoingAway,
		status == StatusProtocolError, status == StatusUnsupportedData,
		status == StatusInvalidData, status == StatusPolicyViolation,
		status == StatusMessageTooBig, status == StatusMandatoryExtension,
		status == StatusInternalError, status == StatusServiceRestart,
		status == StatusTryAgainLater, status == StatusBadGateway:
	default:
		status = StatusProtocolError
	}

	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}

	return status, reason
}
