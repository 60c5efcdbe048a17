package main

import "github.com/ClipFinance/dex-engine/cmd/dexctl/cmd"

func main() {
	cmd.Execute()
}
