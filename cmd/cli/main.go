package main

import "releasewatch/cmd/cli/command"

func main() {
	command.Execute()
}
