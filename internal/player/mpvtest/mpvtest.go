// Package mpvtest lets a test binary stand in for the mpv executable.
//
// A test package calls Run from TestMain, sets Env to one of the modes and
// passes os.Args[0] as the mpv binary. The child process then speaks just
// enough of mpv's JSON IPC for StartMPV and the control loop.
package mpvtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Env selects the fake's behaviour. When unset the test binary runs tests.
const Env = "MPVRELAY_FAKE_MPV"

const (
	ModeServe  = "serve"  // accept every command
	ModeReject = "reject" // refuse loadfile like a broken stream would
	ModeExit   = "exit"   // exit before opening the socket
	ModeSilent = "silent" // never open the socket
)

// Run takes over the process when Env is set and never returns in that case.
func Run() {
	if mode := os.Getenv(Env); mode != "" {
		os.Exit(Main(mode, os.Args[1:]))
	}
}

// Main runs the fake player with mpv's command-line args and returns the
// exit status.
func Main(mode string, args []string) int {
	var socketPath string
	for _, a := range args {
		if v, ok := strings.CutPrefix(a, "--input-ipc-server="); ok {
			socketPath = v
		}
	}

	switch mode {
	case ModeExit:
		return 1
	case ModeSilent:
		time.Sleep(time.Hour)
		return 0
	}

	if socketPath == "" {
		fmt.Fprintln(os.Stderr, "fake mpv: no --input-ipc-server")
		return 2
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fake mpv:", err)
		return 2
	}
	conn, err := ln.Accept()
	if err != nil {
		return 2
	}
	defer conn.Close()

	fmt.Fprintln(conn, `{"event":"idle"}`)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req struct {
			Command   []string `json:"command"`
			RequestID int64    `json:"request_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		fmt.Fprintf(conn, `{"request_id":%d,"error":%q,"data":null}`+"\n", req.RequestID, status(mode, req.Command))
	}
	return 0
}

func status(mode string, command []string) string {
	if len(command) == 0 || command[0] != "loadfile" {
		return "invalid parameter"
	}
	if mode == ModeReject {
		return "loading failed"
	}
	return "success"
}
