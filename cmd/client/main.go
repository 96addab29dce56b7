package main

import "polyform-sync/cmd/client/cmd"

func main() {
	cmd.Execute()
}
