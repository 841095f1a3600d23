package main

import (
	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsrun"
)

func main() {
	cli.Main(tcjsrun.RunWithIO)
}
