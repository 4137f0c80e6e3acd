// Gong is a command-line probe for WebSocket servers and wire captures:
// it connects to servers, and encodes/decodes raw RFC 6455 frames.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "gong"
	ConfigFileName = "config.toml"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "gong",
		Usage:   "WebSocket wire-protocol probe: connect to servers, encode/decode frames",
		Version: bi.Main.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty-log",
				Usage: "human-readable console logging, instead of JSON",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log individual frames, not just messages",
			},
		},
		Commands: []*cli.Command{
			connectCommand(configFile()),
			decodeCommand(),
			encodeCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		fmt.Printf("Error: failed to create config file: %v\n", err)
		os.Exit(1)
	}
	return altsrc.StringSourcer(path)
}
