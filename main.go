package main

import "github.com/skarllot/flow-pair/pkg/cli"

func main() {
	cli.Execute()
}
