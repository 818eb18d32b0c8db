package dedupe_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/squid/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestObserve(t *testing.T) {
	Convey("Given fresh limiter state", t, func() {
		now := time.Unix(1_700_000_000, 0)
		s := dedupe.NewState(dedupe.WithCapacity(8))

		Convey("When a contributor is seen for the first time", func() {
			n := s.Observe("alice", now)

			Convey("Then the repeat count should be zero", func() {
				So(n, ShouldEqual, 0)
				So(s.Distinct(), ShouldEqual, 1)
			})
		})

		Convey("When a contributor repeats within the window", func() {
			So(s.Observe("alice", now), ShouldEqual, 0)
			So(s.Observe("alice", now.Add(time.Second)), ShouldEqual, 1)
			So(s.Observe("alice", now.Add(2*time.Second)), ShouldEqual, 2)

			Convey("Then distinct contributors should stay at one", func() {
				So(s.Distinct(), ShouldEqual, 1)
			})
		})

		Convey("When distinct contributors stay within capacity", func() {
			for i := 0; i < 8; i++ {
				n := s.Observe(fmt.Sprintf("user-%d", i), now)
				So(n, ShouldEqual, 0)
			}

			Convey("Then the state should remain exact", func() {
				So(s.Approximate(), ShouldBeFalse)
				So(s.Distinct(), ShouldEqual, 8)
			})
		})
	})
}

func TestDegrade(t *testing.T) {
	Convey("Given limiter state at exact capacity", t, func() {
		now := time.Unix(1_700_000_000, 0)
		s := dedupe.NewState(dedupe.WithCapacity(4))
		for i := 0; i < 4; i++ {
			s.Observe(fmt.Sprintf("user-%d", i), now)
		}
		So(s.Approximate(), ShouldBeFalse)

		Convey("When the (C+1)-th distinct contributor arrives", func() {
			n := s.Observe("newcomer", now)

			Convey("Then the state should degrade to the approximate filter", func() {
				So(s.Approximate(), ShouldBeTrue)
				So(n, ShouldEqual, 0)
			})

			Convey("Then previously seen contributors should still count as repeats", func() {
				So(s.Observe("user-0", now), ShouldBeGreaterThanOrEqualTo, 1)
				So(s.Observe("newcomer", now), ShouldBeGreaterThanOrEqualTo, 1)
			})

			Convey("Then repeats report a membership-only count of one", func() {
				s.Observe("user-1", now)
				So(s.Observe("user-1", now), ShouldEqual, 1)
			})
		})

		Convey("When many more distinct contributors arrive after degrading", func() {
			s.Observe("trigger", now)
			So(s.Approximate(), ShouldBeTrue)
			for i := 0; i < 10_000; i++ {
				s.Observe(fmt.Sprintf("flood-%d", i), now)
			}

			Convey("Then the state should stay in its fixed-size representation", func() {
				So(s.Approximate(), ShouldBeTrue)
				So(s.Distinct(), ShouldEqual, -1)
			})
		})
	})
}

func TestRotation(t *testing.T) {
	Convey("Given limiter state with a short window", t, func() {
		now := time.Unix(1_700_000_000, 0)
		s := dedupe.NewState(
			dedupe.WithCapacity(2),
			dedupe.WithWindow(time.Minute),
		)
		So(s.Observe("alice", now), ShouldEqual, 0)
		So(s.Observe("alice", now.Add(time.Second)), ShouldEqual, 1)

		Convey("When the window elapses", func() {
			n := s.Observe("alice", now.Add(61*time.Second))

			Convey("Then the contributor should count as new again", func() {
				So(n, ShouldEqual, 0)
				So(s.Distinct(), ShouldEqual, 1)
			})
		})

		Convey("When the state degraded and the window elapses", func() {
			s.Observe("bob", now)
			s.Observe("carol", now) // third distinct, degrades
			So(s.Approximate(), ShouldBeTrue)

			n := s.Observe("dave", now.Add(2*time.Minute))

			Convey("Then the state should reset to exact mode", func() {
				So(s.Approximate(), ShouldBeFalse)
				So(n, ShouldEqual, 0)
				So(s.Distinct(), ShouldEqual, 1)
			})
		})
	})
}
