package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipkeep/internal/rpc"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func newCopyCmd() *cobra.Command {
	cmd := clientCmd("copy [text...]", "Copy arguments or stdin to the clipboard (like pbcopy)", cobra.ArbitraryArgs, nil,
		func(v *viper.Viper, args []string) error {
			req, err := copyRequest(args, os.Stdin)
			if err != nil || req == nil {
				return err
			}
			return withClient(v, func(ctx context.Context, c *rpc.Client) error {
				if err := c.Copy(ctx, req); err != nil {
					return fmt.Errorf("copy: %w", err)
				}
				return nil
			})
		})
	cmd.Long = `Writes text to the system clipboard through the daemon, which records it
like any other copy. Without arguments stdin is read; PNG data on stdin is
copied as an image:

  clipkeep copy < screenshot.png`
	return cmd
}

// copyRequest builds the request from args, or from r when there are none.
// Empty input yields nil.
func copyRequest(args []string, r io.Reader) (*rpc.CopyRequest, error) {
	if len(args) > 0 {
		return &rpc.CopyRequest{Text: strings.Join(args, " ")}, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if bytes.HasPrefix(data, pngMagic) {
		return &rpc.CopyRequest{PNG: data}, nil
	}
	return &rpc.CopyRequest{Text: string(data)}, nil
}
