package main

import "github.com/adamwoolhether/rpcthrottle/cmd/rpcthrottle/cmd"

func main() {
	cmd.Execute()
}
