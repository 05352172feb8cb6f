package main

import "profilematch/internal/cli"

func main() {
	cli.Execute()
}
