package scoring_test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/squid/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecayScoring(t *testing.T) {
	Convey("Given a scorer with a 60s half-life", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		s := scoring.New(
			scoring.WithHalfLife(60*time.Second),
			scoring.WithBaseWeight(1.0),
		)

		Convey("When 'alpha' is ingested at t=0", func() {
			So(s.Ingest(ctx, "alpha", "carol", t0, 1.0), ShouldBeNil)

			Convey("Then its score at t=0 should be 1.0", func() {
				score, ok := s.Score("alpha", t0)
				So(ok, ShouldBeTrue)
				So(score, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("Then its score at t=60 should have halved", func() {
				score, ok := s.Score("alpha", t0.Add(60*time.Second))
				So(ok, ShouldBeTrue)
				So(score, ShouldAlmostEqual, 0.5, 1e-9)
			})

			Convey("And a distinct contributor ingests 'alpha' at t=60", func() {
				So(s.Ingest(ctx, "alpha", "dave", t0.Add(60*time.Second), 1.0), ShouldBeNil)

				Convey("Then the score at t=60 should be about 1.5", func() {
					score, ok := s.Score("alpha", t0.Add(60*time.Second))
					So(ok, ShouldBeTrue)
					So(score, ShouldAlmostEqual, 1.5, 1e-9)
				})
			})
		})

		Convey("When reading an unknown term", func() {
			score, ok := s.Score("ghost", t0)

			Convey("Then it should report absence", func() {
				So(ok, ShouldBeFalse)
				So(score, ShouldEqual, 0)
			})
		})
	})
}

func TestMonotonicDecay(t *testing.T) {
	Convey("Given a term with no further ingests", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		s := scoring.New(scoring.WithHalfLife(30 * time.Second))
		So(s.Ingest(ctx, "alpha", "carol", t0, 1.0), ShouldBeNil)

		Convey("When sampling the score at increasing times", func() {
			prev := math.Inf(1)
			for i := 0; i <= 10; i++ {
				score, ok := s.Score("alpha", t0.Add(time.Duration(i)*7*time.Second))
				So(ok, ShouldBeTrue)
				So(score, ShouldBeLessThanOrEqualTo, prev)
				So(score, ShouldBeGreaterThanOrEqualTo, 0)
				prev = score
			}
		})
	})
}

func TestContributorDampening(t *testing.T) {
	Convey("Given a scorer with dedup capacity 1", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		s := scoring.New(
			scoring.WithHalfLife(60*time.Second),
			scoring.WithBaseWeight(1.0),
			scoring.WithDedupeCapacity(1),
		)

		Convey("When contributor A ingests 'beta' twice", func() {
			So(s.Ingest(ctx, "beta", "A", t0, 1.0), ShouldBeNil)
			So(s.Ingest(ctx, "beta", "A", t0.Add(time.Second), 1.0), ShouldBeNil)

			Convey("Then the repeat should be diminished, not counted in full", func() {
				score, ok := s.Score("beta", t0.Add(time.Second))
				So(ok, ShouldBeTrue)
				decayed := math.Exp(-math.Ln2 / 60.0) // 1.0 decayed over one second
				So(score, ShouldAlmostEqual, decayed+0.5, 1e-9)
				So(score, ShouldBeLessThan, 2.0)
			})
		})

		Convey("When the hard-cap policy is configured instead", func() {
			hc := scoring.New(
				scoring.WithHalfLife(60*time.Second),
				scoring.WithDampening(scoring.HardCap),
			)
			So(hc.Ingest(ctx, "beta", "A", t0, 1.0), ShouldBeNil)
			So(hc.Ingest(ctx, "beta", "A", t0, 1.0), ShouldBeNil)

			Convey("Then repeats should contribute nothing", func() {
				score, ok := hc.Score("beta", t0)
				So(ok, ShouldBeTrue)
				So(score, ShouldAlmostEqual, 1.0, 1e-9)
			})
		})
	})
}

func TestOrderConvergence(t *testing.T) {
	Convey("Given the same occurrences in two different arrival orders", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		offsets := []int{0, 13, 29, 42, 57, 73, 88, 91, 120, 150}

		run := func(perm []int) float64 {
			s := scoring.New(
				scoring.WithHalfLife(45*time.Second),
				scoring.WithBaseWeight(1.0),
			)
			for _, idx := range perm {
				contributor := fmt.Sprintf("user-%d", idx)
				ts := t0.Add(time.Duration(offsets[idx]) * time.Second)
				So(s.Ingest(ctx, "gamma", contributor, ts, 1.0), ShouldBeNil)
			}
			score, ok := s.Score("gamma", t0.Add(200*time.Second))
			So(ok, ShouldBeTrue)
			return score
		}

		ordered := make([]int, len(offsets))
		for i := range ordered {
			ordered[i] = i
		}
		shuffled := append([]int(nil), ordered...)
		rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		Convey("When replaying ordered and shuffled", func() {
			a := run(ordered)
			b := run(shuffled)

			Convey("Then the final scores should converge", func() {
				So(a, ShouldAlmostEqual, b, 1e-9)
			})
		})
	})
}

func TestOutOfOrderClamping(t *testing.T) {
	Convey("Given a term updated at t=100", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		s := scoring.New(scoring.WithHalfLife(60 * time.Second))
		So(s.Ingest(ctx, "alpha", "carol", t0.Add(100*time.Second), 1.0), ShouldBeNil)
		_, last, ok := s.Peek("alpha", t0.Add(100*time.Second))
		So(ok, ShouldBeTrue)

		Convey("When an older occurrence arrives", func() {
			So(s.Ingest(ctx, "alpha", "dave", t0.Add(40*time.Second), 1.0), ShouldBeNil)

			Convey("Then lastUpdate should not rewind", func() {
				_, last2, ok2 := s.Peek("alpha", t0.Add(100*time.Second))
				So(ok2, ShouldBeTrue)
				So(last2, ShouldEqual, last)
			})

			Convey("Then the score should stay finite and non-negative", func() {
				score, ok2 := s.Score("alpha", t0.Add(100*time.Second))
				So(ok2, ShouldBeTrue)
				So(math.IsNaN(score), ShouldBeFalse)
				So(score, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When rejecting malformed ingests", func() {
			Convey("Then an empty term should fail", func() {
				So(s.Ingest(ctx, "", "carol", t0, 1.0), ShouldNotBeNil)
			})
			Convey("Then a zero timestamp should fail", func() {
				So(s.Ingest(ctx, "alpha", "carol", time.Time{}, 1.0), ShouldNotBeNil)
			})
		})
	})
}

func TestSweep(t *testing.T) {
	Convey("Given a scorer with a score floor", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		s := scoring.New(
			scoring.WithHalfLife(10*time.Second),
			scoring.WithScoreFloor(0.05),
		)
		So(s.Ingest(ctx, "fresh", "carol", t0.Add(100*time.Second), 1.0), ShouldBeNil)
		So(s.Ingest(ctx, "stale", "carol", t0, 1.0), ShouldBeNil)
		So(s.Count(), ShouldEqual, 2)

		Convey("When sweeping after the stale term decayed below the floor", func() {
			evicted := s.Sweep(t0.Add(100 * time.Second))

			Convey("Then only the stale term should be removed", func() {
				So(evicted, ShouldEqual, 1)
				So(s.Count(), ShouldEqual, 1)
				_, ok := s.Score("stale", t0.Add(100*time.Second))
				So(ok, ShouldBeFalse)
				_, ok = s.Score("fresh", t0.Add(100*time.Second))
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestSnapshotRestore(t *testing.T) {
	Convey("Given a scorer with accumulated state", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		s := scoring.New(scoring.WithHalfLife(60 * time.Second))
		So(s.Ingest(ctx, "alpha", "carol", t0, 1.0), ShouldBeNil)
		So(s.Ingest(ctx, "beta", "dave", t0.Add(10*time.Second), 1.0), ShouldBeNil)
		So(s.Ingest(ctx, "alpha", "dave", t0.Add(20*time.Second), 1.0), ShouldBeNil)

		Convey("When capturing a snapshot and restoring into a fresh scorer", func() {
			snap := s.Snapshot(t0.Add(30 * time.Second))
			restored := scoring.New(scoring.WithHalfLife(60 * time.Second))
			restored.Restore(snap)

			Convey("Then entries should be term-ordered and versioned", func() {
				So(snap.Version, ShouldEqual, 1)
				So(len(snap.Entries), ShouldEqual, 2)
				So(snap.Entries[0].Term, ShouldEqual, "alpha")
				So(snap.Entries[1].Term, ShouldEqual, "beta")
			})

			Convey("Then scores and lastUpdate should round-trip exactly", func() {
				for _, term := range []string{"alpha", "beta"} {
					wantScore, wantLast, ok := s.Peek(term, t0.Add(30*time.Second))
					So(ok, ShouldBeTrue)
					gotScore, gotLast, ok := restored.Peek(term, t0.Add(30*time.Second))
					So(ok, ShouldBeTrue)
					So(gotLast, ShouldEqual, wantLast)
					So(gotScore, ShouldAlmostEqual, wantScore, 1e-12)
				}
			})

			Convey("Then restored terms should be reported as touched", func() {
				touched := restored.DrainTouched()
				So(len(touched), ShouldEqual, 2)
			})
		})
	})
}

func TestDrainTouched(t *testing.T) {
	Convey("Given ingests across several terms", t, func() {
		ctx := context.Background()
		t0 := time.Unix(1_700_000_000, 0)
		s := scoring.New()
		So(s.Ingest(ctx, "alpha", "carol", t0, 1.0), ShouldBeNil)
		So(s.Ingest(ctx, "beta", "carol", t0, 1.0), ShouldBeNil)
		So(s.Ingest(ctx, "alpha", "dave", t0, 1.0), ShouldBeNil)

		Convey("When draining touched terms", func() {
			touched := s.DrainTouched()

			Convey("Then each term should appear once", func() {
				So(len(touched), ShouldEqual, 2)
				seen := map[string]bool{}
				for _, term := range touched {
					seen[term] = true
				}
				So(seen["alpha"], ShouldBeTrue)
				So(seen["beta"], ShouldBeTrue)
			})

			Convey("Then a second drain should be empty", func() {
				So(len(s.DrainTouched()), ShouldEqual, 0)
			})
		})
	})
}
