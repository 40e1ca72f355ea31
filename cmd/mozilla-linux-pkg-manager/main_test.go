package main

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mozilla-releng/linux-pkg-manager/pkg/cli"
)

func TestIntegration(t *testing.T) {
	Convey("Make a new root command", t, func() {
		rootCmd := cli.NewRootCmd()
		So(rootCmd, ShouldNotBeNil)
		So(func() { _ = rootCmd.Execute() }, ShouldNotPanic)
	})
}
