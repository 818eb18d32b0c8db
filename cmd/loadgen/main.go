// Command loadgen generates synthetic message traffic against a running
// squid instance and reports the resulting trend view.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Default configuration constants.
const (
	defaultNumMessages  = 10000
	defaultVocabulary   = 500
	defaultContributors = 200
	defaultTermsPerMsg  = 3
	defaultTopK         = 20
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

type messageRequest struct {
	Terms         []string `json:"terms"`
	ContributorID string   `json:"contributor_id"`
	TS            string   `json:"ts"`
}

type counters struct {
	accepted    atomic.Int64
	backpressed atomic.Int64
	failed      atomic.Int64
}

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numMessages  = flag.Int("messages", defaultNumMessages, "Number of messages to submit")
		vocabulary   = flag.Int("vocabulary", defaultVocabulary, "Number of distinct terms to draw from")
		contributors = flag.Int("contributors", defaultContributors, "Number of distinct contributors")
		termsPerMsg  = flag.Int("terms", defaultTermsPerMsg, "Terms per message")
		topK         = flag.Int("top", defaultTopK, "Number of top entries to fetch afterwards")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed         = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	client := &http.Client{Timeout: *timeout}
	jobs := make(chan messageRequest, *workers)
	var stats counters

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range jobs {
				submit(ctx, client, *baseURL, msg, &stats)
			}
		}()
	}

	// A Zipf distribution concentrates traffic on a small hot set so the
	// leaderboard has something to rank.
	rng := rand.New(rand.NewSource(*seed))
	zipf := rand.NewZipf(rng, 1.2, 1.0, uint64(*vocabulary-1))

	start := time.Now()
	for i := 0; i < *numMessages; i++ {
		terms := make([]string, 0, *termsPerMsg)
		for len(terms) < *termsPerMsg {
			terms = append(terms, "term-"+strconv.FormatUint(zipf.Uint64(), 10))
		}
		jobs <- messageRequest{
			Terms:         terms,
			ContributorID: "contributor-" + strconv.Itoa(rng.Intn(*contributors)),
			TS:            time.Now().UTC().Format(time.RFC3339),
		}
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("submitted %d messages in %s (%.0f msg/s)\n",
		*numMessages, elapsed.Round(time.Millisecond),
		float64(*numMessages)/elapsed.Seconds())
	fmt.Printf("accepted=%d backpressure=%d failed=%d\n",
		stats.accepted.Load(), stats.backpressed.Load(), stats.failed.Load())

	if err := printTrends(ctx, client, *baseURL, *topK); err != nil {
		os.Stderr.WriteString("fetching trends failed: " + err.Error() + "\n")
	}
}

func submit(ctx context.Context, client *http.Client, baseURL string, msg messageRequest, stats *counters) {
	body, err := json.Marshal(msg)
	if err != nil {
		stats.failed.Add(1)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		stats.failed.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		stats.failed.Add(1)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		stats.accepted.Add(1)
	case http.StatusTooManyRequests:
		stats.backpressed.Add(1)
	default:
		stats.failed.Add(1)
	}
}

func printTrends(ctx context.Context, client *http.Client, baseURL string, k int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/trends?k="+strconv.Itoa(k), nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var view struct {
		AsOf    time.Time `json:"as_of"`
		Version uint64    `json:"version"`
		Entries []struct {
			Term  string  `json:"term"`
			Score float64 `json:"score"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return err
	}

	fmt.Printf("trends as of %s (version %d):\n", view.AsOf.Format(time.RFC3339), view.Version)
	for i, e := range view.Entries {
		fmt.Printf("%3d. %-24s %.4f\n", i+1, e.Term, e.Score)
	}
	return nil
}
