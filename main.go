package main

import "github.com/tidepool-org/intake/api"

func main() {
	api.MainLoop()
}
