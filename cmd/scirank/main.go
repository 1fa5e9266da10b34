package main

import (
	"github.com/mchmarny/scirank/pkg/cli"
)

func main() {
	cli.Execute()
}
