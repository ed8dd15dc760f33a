// Package main is the entry point for the csstrats CLI tool, which parses
// CS2 demo files and discovers recurring team strategies per map and side.
package main

import "github.com/pable/go-cs-strats/cmd"

func main() {
	cmd.Execute()
}
