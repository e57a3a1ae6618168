package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"mpvrelay/internal/player"
)

type doctorReport struct {
	Version      string              `json:"version"`
	Listen       string              `json:"listen"`
	MPV          player.BinaryStatus `json:"mpv"`
	Ytdlp        player.BinaryStatus `json:"yt_dlp"`
	FZF          player.BinaryStatus `json:"fzf"`
	MPVArgs      []string            `json:"mpv_args"`
	ReadyToServe bool                `json:"ready_to_serve"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report helper programs and the mpv options that would be used",
	Args:  cobra.NoArgs,
	RunE:  doctorRun,
}

func doctorRun(cmd *cobra.Command, args []string) error {
	report := doctorReport{
		Version: Version,
		Listen:  cfg.Listen,
		MPV:     player.Probe(cfg.MPVPath),
		Ytdlp:   player.Probe("yt-dlp"),
		FZF:     player.Probe("fzf"),
	}
	report.MPVArgs = cfg.PlayerOptions(cfg.Ytdl && report.Ytdlp.Found).Args()
	report.ReadyToServe = report.MPV.Found

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
