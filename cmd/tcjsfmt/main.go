package main

import (
	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsfmt"
)

func main() {
	cli.Main(tcjsfmt.RunWithIO)
}
