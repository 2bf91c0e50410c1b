package main

import "github.com/514labs/moose-e2e/cmd"

func main() {
	cmd.Execute()
}
