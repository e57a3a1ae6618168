package player

import (
	"fmt"
	"os/exec"
)

var lookPath = exec.LookPath

// KeyValue is a single mpv option.
type KeyValue struct {
	Key   string `toml:"key"`
	Value string `toml:"value"`
}

// Options describes how mpv is initialised.
type Options struct {
	HardwareDecoding bool
	Resolution       int  // Target video height for the ytdl format selector
	Ytdl             bool // Let mpv resolve web URLs through its ytdl hook
	UseYtdlp         bool // Point the ytdl hook at yt-dlp instead of youtube-dl
	ForceWindow      bool
	OSC              bool
	Prefetch         bool
	Extra            []KeyValue // Applied last, in order
}

// Pairs returns the options in the order mpv should apply them.
func (o Options) Pairs() []KeyValue {
	hwdec := "no"
	if o.HardwareDecoding {
		hwdec = "auto"
	}

	pairs := []KeyValue{
		{"hwdec", hwdec},
		{"keep-open", "yes"},
		{"idle", "yes"},
		{"ytdl", yesNo(o.Ytdl)},
	}

	if o.Ytdl {
		pairs = append(pairs, KeyValue{"ytdl-format", FormatSelector(o.Resolution)})
		if o.UseYtdlp {
			pairs = append(pairs, KeyValue{"script-opts", "ytdl_hook-ytdl_path=yt-dlp"})
		}
	}

	forceWindow := "no"
	if o.ForceWindow {
		forceWindow = "immediate"
	}
	pairs = append(pairs,
		KeyValue{"force-window", forceWindow},
		KeyValue{"osc", yesNo(o.OSC)},
		KeyValue{"prefetch-playlist", yesNo(o.Prefetch)},
	)

	return append(pairs, o.Extra...)
}

// Args renders the options as mpv command-line flags.
func (o Options) Args() []string {
	pairs := o.Pairs()
	args := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		args = append(args, "--"+kv.Key+"="+kv.Value)
	}
	return args
}

// FormatSelector builds the ytdl format expression for a target height.
func FormatSelector(height int) string {
	return fmt.Sprintf("bestvideo[height=%d]+bestaudio", height)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// BinaryStatus reports whether a helper program was found in PATH.
type BinaryStatus struct {
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// Probe looks name up in PATH.
func Probe(name string) BinaryStatus {
	path, err := lookPath(name)
	if err != nil {
		return BinaryStatus{Found: false}
	}
	return BinaryStatus{Found: true, Path: path}
}

// Available checks if the binary exists in PATH.
func Available(name string) bool {
	return Probe(name).Found
}
