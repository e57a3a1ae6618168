package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mpvrelay/internal/ingest"
	"mpvrelay/internal/media"
)

var flagAddr string

var sendCmd = &cobra.Command{
	Use:   "send [locator...]",
	Short: "Queue URLs or paths in a running relay",
	Long: `Send each locator to a running relay over its own connection, in order.
With no arguments the locator is read from stdin.`,
	Args: cobra.ArbitraryArgs,
	RunE: sendRun,
}

func init() {
	sendCmd.Flags().StringVarP(&flagAddr, "addr", "a", "", "Relay address (default derived from --listen)")
}

func sendRun(cmd *cobra.Command, args []string) error {
	addr := flagAddr
	if addr == "" {
		addr = dialAddr(cfg.Listen)
	}

	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		args = []string{strings.TrimRight(string(data), "\r\n")}
	}

	for _, arg := range args {
		if err := ingest.Send(cmd.Context(), addr, media.Locator(arg)); err != nil {
			return err
		}
		debugf("sent %q to %s", arg, addr)
	}
	return nil
}

// dialAddr turns a listen address into one a local client can connect to.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// debugf logs at debug level; the logger's level decides whether it shows.
func debugf(format string, args ...interface{}) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	logger.Debug(fmt.Sprintf(format, args...))
}
