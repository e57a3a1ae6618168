package main

import "mpvrelay/cmd"

func main() {
	cmd.Execute()
}
