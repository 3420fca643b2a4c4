package main

import "ipdash/internal/cli"

func main() {
	cli.Execute()
}
