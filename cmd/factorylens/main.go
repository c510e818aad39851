package main

import "github.com/factorylens/factorylens/internal/cli"

func main() {
	cli.Execute()
}
