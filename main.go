package main

import "github.com/avelines/creator-ledger/cmd"

func main() {
	cmd.Execute()
}
