package main

import "github.com/tidepool-org/intake/cmd/intake/command"

func main() {
	command.Execute()
}
