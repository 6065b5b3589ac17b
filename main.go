package main

import "phylotree/cmd"

func main() {
	cmd.Execute()
}
