package main

import "bugsentinel/cmd/client/cmd"

func main() {
	cmd.Execute()
}
