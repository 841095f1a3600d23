package main

import (
	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsls"
)

func main() {
	cli.Main(tcjsls.RunWithIO)
}
