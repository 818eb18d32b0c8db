package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/squid/internal/adapters/http/api"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies backs the handlers with canned data.
type mockDependencies struct {
	enqueueOK bool
	enqueued  []api.Event
	view      api.View
	scores    map[string]api.Entry
}

func (m *mockDependencies) Enqueue(_ context.Context, e api.Event) bool {
	if !m.enqueueOK {
		return false
	}
	m.enqueued = append(m.enqueued, e)
	return true
}

func (m *mockDependencies) Top(_ context.Context, k int) (api.View, error) {
	v := m.view
	if k < len(v.Entries) {
		v.Entries = v.Entries[:k]
	}
	return v, nil
}

func (m *mockDependencies) TermScore(_ context.Context, term string) (api.Entry, bool) {
	e, ok := m.scores[term]
	return e, ok
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"terms": 2}}, api.WithMaxK(5))
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func TestPostMessage(t *testing.T) {
	Convey("Given the messages endpoint", t, func() {
		deps := &mockDependencies{enqueueOK: true}
		mux := newMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When posting a well-formed message", func() {
			w := post(`{"terms":["go","wasm"],"contributor_id":"carol","ts":"2026-08-23T10:00:00Z"}`)

			Convey("Then it should be accepted with a message id", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack struct {
					Status    string `json:"status"`
					MessageID string `json:"message_id"`
				}
				So(json.NewDecoder(w.Body).Decode(&ack), ShouldBeNil)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.MessageID, ShouldNotBeEmpty)
			})

			Convey("Then one occurrence per term should be enqueued", func() {
				So(len(deps.enqueued), ShouldEqual, 2)
				So(deps.enqueued[0].Term, ShouldEqual, "go")
				So(deps.enqueued[1].Term, ShouldEqual, "wasm")
				So(deps.enqueued[0].MessageID, ShouldEqual, deps.enqueued[1].MessageID)
				So(deps.enqueued[0].Contributor, ShouldEqual, "carol")
				So(deps.enqueued[0].TS.Equal(time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When posting without a timestamp", func() {
			before := time.Now()
			w := post(`{"terms":["go"],"contributor_id":"carol"}`)

			Convey("Then arrival time should be used", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].TS.Before(before), ShouldBeFalse)
			})
		})

		Convey("When posting malformed input", func() {
			Convey("Then invalid JSON should be rejected", func() {
				So(post(`{not json`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then empty terms should be rejected", func() {
				So(post(`{"terms":[],"contributor_id":"carol"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then a blank term should be rejected", func() {
				So(post(`{"terms":["  "],"contributor_id":"carol"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then an oversized term should be rejected", func() {
				long := strings.Repeat("x", 65)
				So(post(`{"terms":["`+long+`"],"contributor_id":"carol"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then a missing contributor should be rejected", func() {
				So(post(`{"terms":["go"]}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then a bad timestamp should be rejected", func() {
				So(post(`{"terms":["go"],"contributor_id":"carol","ts":"yesterday"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the queue reports backpressure", func() {
			deps.enqueueOK = false
			w := post(`{"terms":["go"],"contributor_id":"carol"}`)

			Convey("Then the message should be rejected with 429", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			})
		})
	})
}

func TestGetTrends(t *testing.T) {
	Convey("Given the trends endpoint", t, func() {
		asOf := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
		deps := &mockDependencies{
			enqueueOK: true,
			view: api.View{
				AsOf:    asOf,
				Version: 7,
				Entries: []api.Entry{
					{Term: "go", Score: 3.5},
					{Term: "wasm", Score: 2.0},
					{Term: "rust", Score: 1.0},
				},
			},
		}
		mux := newMux(deps)

		get := func(target string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When requesting the top 2", func() {
			w := get("/trends?k=2")

			Convey("Then the versioned view should be returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					AsOf    time.Time `json:"as_of"`
					Version uint64    `json:"version"`
					Entries []struct {
						Term  string  `json:"term"`
						Score float64 `json:"score"`
					} `json:"entries"`
				}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Version, ShouldEqual, 7)
				So(resp.AsOf.Equal(asOf), ShouldBeTrue)
				So(len(resp.Entries), ShouldEqual, 2)
				So(resp.Entries[0].Term, ShouldEqual, "go")
				So(resp.Entries[1].Term, ShouldEqual, "wasm")
			})
		})

		Convey("When k exceeds the configured maximum", func() {
			Convey("Then it should be clamped, not rejected", func() {
				So(get("/trends?k=9999").Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When k is invalid", func() {
			So(get("/trends").Code, ShouldEqual, http.StatusBadRequest)
			So(get("/trends?k=0").Code, ShouldEqual, http.StatusBadRequest)
			So(get("/trends?k=abc").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetTermScore(t *testing.T) {
	Convey("Given the term score endpoint", t, func() {
		deps := &mockDependencies{
			enqueueOK: true,
			scores: map[string]api.Entry{
				"go": {Term: "go", Score: 1.25, LastUpdate: 1_700_000_000_000_000_000},
			},
		}
		mux := newMux(deps)

		get := func(target string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When looking up a tracked term", func() {
			w := get("/terms/go/score")

			Convey("Then its decayed score should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Term       string  `json:"term"`
					Score      float64 `json:"score"`
					LastUpdate int64   `json:"last_update"`
				}
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Term, ShouldEqual, "go")
				So(resp.Score, ShouldEqual, 1.25)
				So(resp.LastUpdate, ShouldEqual, 1_700_000_000_000_000_000)
			})
		})

		Convey("When looking up an unknown term", func() {
			So(get("/terms/zig/score").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the path is malformed", func() {
			So(get("/terms/go").Code, ShouldEqual, http.StatusBadRequest)
			So(get("/terms/a/b/score").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		deps := &mockDependencies{enqueueOK: true}
		mux := newMux(deps)

		Convey("Then healthz should report ok", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "ok")
		})

		Convey("Then stats should surface provider data", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "terms")
		})
	})
}
