package gar

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mozilla-releng/linux-pkg-manager/pkg/retry"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/transport"
)

func TestMapError(t *testing.T) {
	Convey("Transient gRPC codes map to retryable transport errors", t, func() {
		for _, code := range []codes.Code{
			codes.ResourceExhausted,
			codes.Internal,
			codes.Unavailable,
			codes.DeadlineExceeded,
		} {
			mapped := mapError(status.Error(code, "boom"))
			So(retry.ShouldRetry(mapped), ShouldBeTrue)
		}
	})

	Convey("Terminal gRPC codes map to non-retryable transport errors", t, func() {
		for _, code := range []codes.Code{
			codes.NotFound,
			codes.InvalidArgument,
			codes.PermissionDenied,
			codes.FailedPrecondition,
		} {
			mapped := mapError(status.Error(code, "nope"))
			So(retry.ShouldRetry(mapped), ShouldBeFalse)
		}
	})

	Convey("Status codes are preserved on the mapped error", t, func() {
		mapped := mapError(status.Error(codes.ResourceExhausted, "slow down"))

		terr, ok := transport.AsError(mapped)
		So(ok, ShouldBeTrue)
		So(terr.Kind, ShouldEqual, transport.KindStatus)
		So(terr.StatusCode, ShouldEqual, 429)
	})

	Convey("Deadline exceeded maps to a timeout kind", t, func() {
		terr, ok := transport.AsError(mapError(status.Error(codes.DeadlineExceeded, "too slow")))
		So(ok, ShouldBeTrue)
		So(terr.Kind, ShouldEqual, transport.KindTimeout)
	})

	Convey("Unauthenticated maps to an auth wrapper", t, func() {
		terr, ok := transport.AsError(mapError(status.Error(codes.Unauthenticated, "bad token")))
		So(ok, ShouldBeTrue)
		So(terr.Kind, ShouldEqual, transport.KindAuth)
		So(retry.ShouldRetry(terr), ShouldBeFalse)
	})

	Convey("Non-gRPC errors fall back to network classification", t, func() {
		mapped := mapError(errors.New("dial tcp: connection refused"))

		terr, ok := transport.AsError(mapped)
		So(ok, ShouldBeTrue)
		So(terr.Kind, ShouldEqual, transport.KindUnknown)
	})

	Convey("Nil stays nil", t, func() {
		So(mapError(nil), ShouldBeNil)
	})
}
