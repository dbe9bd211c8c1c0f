package main

import "hourcal/internal/cli"

func main() {
	cli.Execute()
}
