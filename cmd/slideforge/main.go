package main

import "github.com/slideforge/slideforge/internal/cli"

func main() {
	cli.Execute()
}
