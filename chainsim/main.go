// Package main is the entry point of the chainsim command.
package main

import "github.com/sarchlab/chainsim/chainsim/cmd"

func main() {
	cmd.Execute()
}
