package main

import (
	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjscheck"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsfmt"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsls"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsrun"
)

// tools maps subcommands to their implementations. The standalone binary
// names are accepted as aliases.
var tools = map[string]cli.Tool{
	"run":   tcjsrun.RunWithIO,
	"check": tcjscheck.RunWithIO,
	"fmt":   tcjsfmt.RunWithIO,
	"ls":    tcjsls.RunWithIO,

	"tcjsrun":   tcjsrun.RunWithIO,
	"tcjscheck": tcjscheck.RunWithIO,
	"tcjsfmt":   tcjsfmt.RunWithIO,
	"tcjsls":    tcjsls.RunWithIO,
}
