package main

import (
	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjscheck"
)

func main() {
	cli.Main(tcjscheck.RunWithIO)
}
