// Package main is the entry point for the usage ledger. Without a subcommand
// it runs the Bubble Tea dashboard; subcommands operate on the ledger from
// scripts.
package main

func main() {
	Execute()
}
