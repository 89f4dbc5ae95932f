package main

import "treesync/cmd"

func main() {
	cmd.Execute()
}
