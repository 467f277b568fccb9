package main

import "github.com/nvestri/imagescout/cmd"

func main() {
	cmd.Execute()
}
