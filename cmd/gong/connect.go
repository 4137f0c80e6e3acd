package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lithammer/shortuuid/v4"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/gong/internal/logger"
	"github.com/tzrikka/gong/internal/upgrade"
	"github.com/tzrikka/gong/pkg/websocket"
)

// connectCommand defines the "connect" subcommand: perform the opening
// handshake, optionally send a message, then print incoming messages
// until the server closes the connection. The authentication flags can
// also be set using environment variables and the application's
// configuration file.
func connectCommand(configFilePath altsrc.StringSourcer) *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "connect to a WebSocket server and exchange messages",
		ArgsUsage: "ws://... or wss://...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "send-text",
				Usage: "text message to send after connecting",
			},
			&cli.StringFlag{
				Name:  "send-binary",
				Usage: "hex-encoded binary message to send after connecting",
			},
			&cli.BoolFlag{
				Name:  "ping",
				Usage: "send a ping after connecting",
			},
			&cli.BoolFlag{
				Name:  "no-mask",
				Usage: "don't mask outgoing frames (clients mask by default)",
			},
			&cli.BoolFlag{
				Name:  "strict-utf8",
				Usage: "reject text messages with invalid UTF-8",
			},
			&cli.StringFlag{
				Name:  "auth-secret",
				Usage: "HMAC secret for minting a bearer token (JWT) for the handshake",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("GONG_AUTH_SECRET"),
					toml.TOML("auth.secret", configFilePath),
				),
			},
			&cli.StringFlag{
				Name:  "auth-issuer",
				Usage: "issuer claim for the minted bearer token",
				Value: "gong",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("GONG_AUTH_ISSUER"),
					toml.TOML("auth.issuer", configFilePath),
				),
			},
		},
		Action: connect,
	}
}

func connect(ctx context.Context, cmd *cli.Command) error {
	url := cmd.Args().First()
	if url == "" {
		return errors.New("missing server URL argument")
	}

	l := logger.New(cmd.Bool("pretty-log"), cmd.Bool("verbose")).With().
		Str("conn_id", shortuuid.New()).Logger()

	headers, err := authHeader(cmd)
	if err != nil {
		return err
	}

	stream, err := upgrade.Dial(ctx, url, headers)
	if err != nil {
		return err
	}
	l.Debug().Str("url", url).Msg("WebSocket connection established")

	opts := []websocket.Option{websocket.WithLogger(l)}
	if !cmd.Bool("no-mask") {
		opts = append(opts, websocket.WithGeneratedMask())
	}
	if cmd.Bool("strict-utf8") {
		opts = append(opts, websocket.WithStrictText())
	}

	conn := websocket.NewConn(websocket.NewFramer(stream), opts...)
	defer conn.Close() //nolint:errcheck // Best-effort cleanup.

	if err := sendInitial(conn, cmd); err != nil {
		return err
	}

	for {
		msg, err := conn.Read()
		if err != nil {
			return err
		}
		if msg == nil {
			l.Debug().Msg("WebSocket connection closed")
			return nil
		}

		switch msg.Opcode {
		case websocket.OpcodeText:
			fmt.Println(string(msg.Data))
		case websocket.OpcodeBinary:
			fmt.Println(hex.EncodeToString(msg.Data))
		}
	}
}

func sendInitial(conn *websocket.Conn, cmd *cli.Command) error {
	if text := cmd.String("send-text"); text != "" {
		if err := conn.SendText(text); err != nil {
			return err
		}
	}

	if h := cmd.String("send-binary"); h != "" {
		data, err := hex.DecodeString(h)
		if err != nil {
			return fmt.Errorf("invalid --send-binary hex string: %w", err)
		}
		if err := conn.SendBinary(data); err != nil {
			return err
		}
	}

	if cmd.Bool("ping") {
		return conn.SendPing(nil)
	}
	return nil
}

// authHeader mints a short-lived HS256 JWT and wraps it in an HTTP
// Authorization header, for servers that authenticate the handshake
// with a bearer token. It returns nil when no secret is configured.
func authHeader(cmd *cli.Command) (http.Header, error) {
	secret := cmd.String("auth-secret")
	if secret == "" {
		return nil, nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
		"iss": cmd.String("auth-issuer"),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %w", err)
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+signed)
	return h, nil
}
