package main

import "musicindex/internal/cli"

func main() {
	cli.Execute()
}
