package main

import (
	"os"

	"github.com/go-go-golems/waitfor/cmd/waitfor/cmds"
)

var version = "dev"

func main() {
	os.Exit(cmds.Execute(version))
}
