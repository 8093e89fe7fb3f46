package main

import "github.com/mcoot/playfield/internal/cli"

func main() {
	cli.Execute()
}
