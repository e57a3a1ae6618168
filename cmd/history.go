package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mpvrelay/internal/history"
	"mpvrelay/internal/ingest"
	"mpvrelay/internal/ui"
)

var (
	flagLimit  int
	flagClear  bool
	flagReplay bool
	flagYes    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, replay or clear submitted locators",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete all history")
	historyCmd.Flags().BoolVar(&flagReplay, "replay", false, "Pick an entry with fzf and send it to the relay again")
	historyCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Do not ask before clearing")
	historyCmd.Flags().StringVarP(&flagAddr, "addr", "a", "", "Relay address for --replay (default derived from --listen)")
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	if flagClear {
		if !flagYes {
			ok, err := ui.Confirm("Clear history?")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		return store.Clear(ctx)
	}

	records, err := store.Recent(ctx, flagLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	items := history.FormatForDisplay(records)

	if !flagReplay {
		for _, item := range items {
			fmt.Println(item)
		}
		return nil
	}

	idx, err := ui.Select("History", items)
	if err != nil {
		return err
	}

	selected := records[idx]
	addr := flagAddr
	if addr == "" {
		addr = dialAddr(cfg.Listen)
	}
	debugf("replaying: %s", selected.Locator)

	return ingest.Send(ctx, addr, selected.Locator)
}
