package main

import "github.com/notargets/fdtria/cmd"

func main() {
	cmd.Execute()
}
