package main

import (
	"os"

	"github.com/mozilla-releng/linux-pkg-manager/pkg/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
