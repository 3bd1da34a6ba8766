package main

import "github.com/killallgit/stream-recorder/cmd"

func main() {
	cmd.Execute()
}
