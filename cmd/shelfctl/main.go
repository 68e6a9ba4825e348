// Package main provides shelfctl, the Shelfwise administration tool.
package main

import "github.com/shelfwise/shelfwise-server/cmd/shelfctl/commands"

func main() {
	commands.Execute()
}
