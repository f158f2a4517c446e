package main

import "github.com/KaramelBytes/popstats-cli/cmd"

func main() {
	cmd.Execute()
}
