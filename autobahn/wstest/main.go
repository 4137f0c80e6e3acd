// Wstest tests gong's [WebSocket implementation] against
// the fuzzing server of the [Autobahn Testsuite].
//
// [WebSocket implementation]: https://pkg.go.dev/github.com/tzrikka/gong/pkg/websocket
// [Autobahn Testsuite]: https://github.com/crossbario/autobahn-testsuite
package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tzrikka/gong/internal/logger"
	"github.com/tzrikka/gong/internal/upgrade"
	"github.com/tzrikka/gong/pkg/websocket"
)

const (
	baseURL = "ws://127.0.0.1:9001"
	agent   = "gong"
)

func main() {
	l := logger.New(true, false)

	n := getCaseCount(l)
	l.Info().Int("n", n).Msg("case count")

	for i := range n {
		runCase(l, i+1)
	}

	updateReports(l)
}

func dial(url string) (*websocket.Conn, error) {
	stream, err := upgrade.Dial(context.Background(), url, nil)
	if err != nil {
		return nil, err
	}

	// The fuzzing server validates client masking, so every
	// outgoing frame carries the connection's key.
	return websocket.NewConn(websocket.NewFramer(stream),
		websocket.WithGeneratedMask(), websocket.WithStrictText()), nil
}

// getCaseCount retrieves the number of enabled test cases from
// the Autobahn fuzzing server, using a WebSocket request.
func getCaseCount(l zerolog.Logger) int {
	conn, err := dial(baseURL + "/getCaseCount")
	if err != nil {
		l.Fatal().Err(err).Msg("dial error")
	}
	defer conn.Close() //nolint:errcheck // Best-effort cleanup.

	msg, err := conn.Read()
	if err != nil || msg == nil {
		l.Fatal().Err(err).Msg("failed to read test case count")
	}

	n, err := strconv.Atoi(string(msg.Data))
	if err != nil {
		l.Fatal().Err(err).Msg("invalid test case count")
	}

	return n
}

// updateReports instructs the Autobahn fuzzing server to generate/update
// all the HTML and JSON files for all the test-case results.
func updateReports(l zerolog.Logger) {
	l.Info().Msg("updating reports")

	url := fmt.Sprintf("%s/updateReports?agent=%s", baseURL, agent)
	conn, err := dial(url)
	if err != nil {
		l.Fatal().Err(err).Msg("dial error")
	}
	_, _ = conn.Read()
	_ = conn.Close()
}

func runCase(l zerolog.Logger, i int) {
	l = l.With().Int("case", i).Logger()
	l.Info().Msg("starting test")

	conn, err := dial(fmt.Sprintf("%s/runCase?case=%d&agent=%s", baseURL, i, agent))
	if err != nil {
		l.Fatal().Err(err).Msg("dial error")
	}
	defer conn.Close() //nolint:errcheck // Best-effort cleanup.

	// Echo loop.
	for {
		msg, err := conn.Read()
		if err != nil {
			// Protocol violations by the fuzzing server are the point
			// of many test cases; the connection already announced
			// them with a close frame.
			var perr *websocket.ProtocolError
			var cerr *websocket.ClosedError
			if !errors.As(err, &perr) && !errors.As(err, &cerr) {
				l.Err(err).Msg("read error")
			}
			return
		}
		if msg == nil {
			l.Debug().Msg("connection closed")
			return
		}

		l.Info().Str("opcode", msg.Opcode.String()).Int("length", len(msg.Data)).
			Msg("echoing message")

		switch msg.Opcode {
		case websocket.OpcodeText:
			err = conn.SendText(string(msg.Data))
		case websocket.OpcodeBinary:
			err = conn.SendBinary(msg.Data)
		}

		if err != nil {
			l.Err(err).Msg("echo error")
			return
		}
	}
}
