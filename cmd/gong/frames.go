package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tzrikka/gong/pkg/websocket"
)

// decodeCommand defines the "decode" subcommand: parse raw frames from
// stdin (or a hex string argument) and describe each one, for debugging
// wire captures.
func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "describe raw WebSocket frames read from stdin, or from a hex argument",
		ArgsUsage: "[hex bytes]",
		Action:    decode,
	}
}

func decode(_ context.Context, cmd *cli.Command) error {
	var stream io.ReadWriter = struct {
		io.Reader
		io.Writer
	}{os.Stdin, io.Discard}

	if arg := cmd.Args().First(); arg != "" {
		data, err := hex.DecodeString(strings.ReplaceAll(arg, " ", ""))
		if err != nil {
			return fmt.Errorf("invalid hex argument: %w", err)
		}
		stream = struct {
			io.Reader
			io.Writer
		}{strings.NewReader(string(data)), io.Discard}
	}

	framer := websocket.NewFramer(stream)
	for i := 1; ; i++ {
		frame, err := framer.ReadFrame()
		if err != nil {
			return err
		}
		if frame == nil {
			return nil
		}

		fmt.Printf("frame %d: fin=%t opcode=%s length=%d masked=%t",
			i, frame.Fin, frame.Opcode, len(frame.Payload), frame.Mask != nil)

		if frame.Opcode == websocket.OpcodeClose {
			status, reason, err := websocket.ParseClose(frame.Payload)
			if err != nil {
				return err
			}
			fmt.Printf(" status=%s reason=%q", status, reason)
		} else if len(frame.Payload) > 0 {
			fmt.Printf(" payload=%s", hex.EncodeToString(frame.Payload))
		}
		fmt.Println()
	}
}

// encodeCommand defines the "encode" subcommand: construct a single
// frame from flags and emit its wire bytes.
func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "emit the wire bytes of a single WebSocket frame",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "opcode",
				Usage: "text, binary, continuation, close, ping, or pong",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "text",
				Usage: "payload as a UTF-8 string",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "payload as a hex string",
			},
			&cli.UintFlag{
				Name:  "status",
				Usage: "close frame status code",
				Value: 1000, // StatusNormalClosure.
			},
			&cli.StringFlag{
				Name:  "reason",
				Usage: "close frame reason",
			},
			&cli.BoolFlag{
				Name:  "no-fin",
				Usage: "clear the FIN bit (fragmented data frame)",
			},
			&cli.BoolFlag{
				Name:  "mask",
				Usage: "mask the frame with a random key",
			},
			&cli.BoolFlag{
				Name:  "hex",
				Usage: "emit hex instead of raw bytes",
			},
		},
		Action: encode,
	}
}

func encode(_ context.Context, cmd *cli.Command) error {
	payload := []byte(cmd.String("text"))
	if h := cmd.String("data"); h != "" {
		var err error
		if payload, err = hex.DecodeString(h); err != nil {
			return fmt.Errorf("invalid --data hex string: %w", err)
		}
	}

	var mask []byte
	if cmd.Bool("mask") {
		mask = make([]byte, 4)
		_, _ = rand.Read(mask) // Never fails, per crypto/rand docs.
	}

	frame, err := buildFrame(cmd, payload, mask)
	if err != nil {
		return err
	}

	var out strings.Builder
	framer := websocket.NewFramer(struct {
		io.Reader
		io.Writer
	}{strings.NewReader(""), &out})
	if err := framer.WriteFrame(frame); err != nil {
		return err
	}
	if err := framer.Flush(); err != nil {
		return err
	}

	if cmd.Bool("hex") {
		fmt.Println(hex.EncodeToString([]byte(out.String())))
		return nil
	}
	_, err = os.Stdout.WriteString(out.String())
	return err
}

func buildFrame(cmd *cli.Command, payload, mask []byte) (*websocket.Frame, error) {
	fin := !cmd.Bool("no-fin")

	switch op := cmd.String("opcode"); op {
	case "text":
		f := websocket.NewTextFrame(string(payload), mask)
		f.Fin = fin
		return f, nil
	case "binary":
		f := websocket.NewBinaryFrame(payload, mask)
		f.Fin = fin
		return f, nil
	case "continuation":
		return websocket.NewContinuationFrame(payload, fin, mask), nil
	case "close":
		status := websocket.StatusCode(cmd.Uint("status")) //gosec:disable G115 -- RFC status codes fit in 16 bits
		return websocket.NewCloseFrame(status, cmd.String("reason"), mask), nil
	case "ping":
		return websocket.NewPingFrame(payload, mask), nil
	case "pong":
		return websocket.NewPongFrame(payload, mask), nil
	default:
		return nil, errors.New("unexpected opcode: " + op)
	}
}
