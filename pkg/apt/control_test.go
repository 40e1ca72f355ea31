package apt_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/apt"
)

const nightlyBlock = `Package: firefox-nightly
Version: 121.0a1~20240115103000
Architecture: amd64
Maintainer: Mozilla <release@mozilla.com>
Description: Mozilla Firefox
 Firefox is a powerful, extensible web browser
 with support for modern web application technologies.`

func TestParseControlBlock(t *testing.T) {
	Convey("A nightly block yields a build timestamp", t, func() {
		record, err := apt.ParseControlBlock(nightlyBlock)
		So(err, ShouldBeNil)
		So(record.Name, ShouldEqual, "firefox-nightly")
		So(record.RawVersion, ShouldEqual, "121.0a1~20240115103000")
		So(record.Channel, ShouldEqual, apt.ChannelNightly)
		So(record.IsNightly(), ShouldBeTrue)
		So(record.BuildTime.Equal(time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)), ShouldBeTrue)
		So(record.BuildNumber, ShouldEqual, 0)
		So(record.Version.Major(), ShouldEqual, 121)
	})

	Convey("A release block yields a build number", t, func() {
		record, err := apt.ParseControlBlock("Package: firefox\nVersion: 120.0~build3")
		So(err, ShouldBeNil)
		So(record.Channel, ShouldEqual, apt.ChannelRelease)
		So(record.IsNightly(), ShouldBeFalse)
		So(record.BuildNumber, ShouldEqual, 3)
		So(record.BuildTime.IsZero(), ShouldBeTrue)
	})

	Convey("A beta block is classified beta and keeps its build number", t, func() {
		record, err := apt.ParseControlBlock("Package: firefox-beta\nVersion: 122.0b5~build1")
		So(err, ShouldBeNil)
		So(record.Channel, ShouldEqual, apt.ChannelBeta)
		So(record.BuildNumber, ShouldEqual, 1)
	})

	Convey("Unknown keys are retained verbatim", t, func() {
		record, err := apt.ParseControlBlock(nightlyBlock)
		So(err, ShouldBeNil)
		So(record.Fields["Maintainer"], ShouldEqual, "Mozilla <release@mozilla.com>")
		So(record.Fields["Architecture"], ShouldEqual, "amd64")
		So(record.Fields["Description"], ShouldContainSubstring, "extensible web browser")
	})

	Convey("A block missing Version fails with a missing-field error", t, func() {
		_, err := apt.ParseControlBlock("Package: firefox-nightly\nArchitecture: amd64")
		So(err, ShouldWrap, zerr.ErrMissingField)
	})

	Convey("A block missing Package fails with a missing-field error", t, func() {
		_, err := apt.ParseControlBlock("Version: 121.0a1~20240115103000")
		So(err, ShouldWrap, zerr.ErrMissingField)
	})

	Convey("Malformed versions fail with a malformed-version error", t, func() {
		malformed := []string{
			"Package: p\nVersion: 121.0a1",                  // no postfix
			"Package: p\nVersion: 121.0a1~2024011510300",    // 13 digits
			"Package: p\nVersion: 121.0a1~20240115103000x0", // non-numeric
			"Package: p\nVersion: 121.0a1~2024x115103000",   // non-numeric, right length
			"Package: p\nVersion: 120.0~3",                  // no build prefix
			"Package: p\nVersion: 120.0~buildX",             // non-integer build
			"Package: p\nVersion: not-a-version~build1",
		}
		for _, block := range malformed {
			_, err := apt.ParseControlBlock(block)
			So(err, ShouldWrap, zerr.ErrMalformedVersion)
		}
	})
}
