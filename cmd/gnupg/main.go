package main

import (
	"os"

	"github.com/kflux/python-gnupg/internal/cmd"
)

var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	os.Exit(cmd.Main(cmd.VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}, os.Args[1:]))
}
