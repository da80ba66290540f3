package main

import "github.com/ctxpack/ctxpack/cmd"

func main() {
	cmd.Execute()
}
