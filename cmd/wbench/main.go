// wbench drives a running werkbank daemon through full session
// lifecycles and reports per-phase latency. Point it at a throwaway
// daemon; it creates and deletes real sessions.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"time"
)

type phaseStats struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

type report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Host        string                `json:"host"`
	Cycles      int                   `json:"cycles"`
	Phases      map[string]phaseStats `json:"phases"`
}

type benchClient struct {
	host   string
	apiKey string
	owner  string
	http   *http.Client
}

type sessionInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func main() {
	host := flag.String("host", "http://127.0.0.1:8080", "werkbank daemon base URL")
	apiKey := flag.String("api-key", "", "API key (if the daemon requires one)")
	owner := flag.String("owner", "wbench", "owner principal for benchmark sessions")
	cycles := flag.Int("n", 5, "number of lifecycle cycles")
	jsonOut := flag.String("json", "", "write JSON report to file")
	flag.Parse()

	c := &benchClient{
		host:   *host,
		apiKey: *apiKey,
		owner:  *owner,
		http:   &http.Client{Timeout: 2 * time.Minute},
	}

	durations := map[string][]float64{}
	record := func(phase string, d time.Duration) {
		durations[phase] = append(durations[phase], float64(d.Microseconds())/1000.0)
	}

	fmt.Printf("running %d lifecycle cycles against %s\n\n", *cycles, *host)

	for i := 0; i < *cycles; i++ {
		start := time.Now()
		info, err := c.createSession(fmt.Sprintf("wbench-%d", i))
		if err != nil {
			fatal("create session: %v", err)
		}
		record("create", time.Since(start))

		start = time.Now()
		if _, err := c.post(fmt.Sprintf("/v1/sessions/%s/suspend", info.ID)); err != nil {
			fatal("suspend session: %v", err)
		}
		record("suspend", time.Since(start))

		start = time.Now()
		if _, err := c.post(fmt.Sprintf("/v1/sessions/%s/open", info.ID)); err != nil {
			fatal("open session: %v", err)
		}
		record("open_after_suspend", time.Since(start))

		start = time.Now()
		if err := c.deleteSession(info.ID); err != nil {
			fatal("delete session: %v", err)
		}
		record("delete_force", time.Since(start))

		fmt.Printf("  cycle %d/%d done (session %s)\n", i+1, *cycles, info.ID)
	}

	rep := report{
		GeneratedAt: time.Now().UTC(),
		Host:        *host,
		Cycles:      *cycles,
		Phases:      map[string]phaseStats{},
	}
	for phase, samples := range durations {
		rep.Phases[phase] = summarize(samples)
	}

	fmt.Printf("\n%-20s %8s %8s %8s %8s %8s\n", "phase", "avg", "min", "max", "p50", "p95")
	for _, phase := range []string{"create", "suspend", "open_after_suspend", "delete_force"} {
		s := rep.Phases[phase]
		fmt.Printf("%-20s %7.1fms %7.1fms %7.1fms %7.1fms %7.1fms\n",
			phase, s.AvgMs, s.MinMs, s.MaxMs, s.P50Ms, s.P95Ms)
	}

	if *jsonOut != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fatal("marshal report: %v", err)
		}
		if err := os.WriteFile(*jsonOut, data, 0o644); err != nil {
			fatal("write report: %v", err)
		}
		fmt.Printf("\nreport written to %s\n", *jsonOut)
	}
}

func (c *benchClient) createSession(name string) (*sessionInfo, error) {
	body, err := c.do("POST", "/v1/sessions",
		fmt.Sprintf(`{"display_name":%q}`, name), http.StatusCreated)
	if err != nil {
		return nil, err
	}
	var info sessionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *benchClient) post(path string) ([]byte, error) {
	return c.do("POST", path, "", http.StatusOK)
}

func (c *benchClient) deleteSession(id string) error {
	_, err := c.do("DELETE", "/v1/sessions/"+id+"?force=true", "", http.StatusOK)
	return err
}

func (c *benchClient) do(method, path, body string, wantStatus int) ([]byte, error) {
	req, err := http.NewRequest(method, c.host+path, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Owner-ID", c.owner)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	return data, nil
}

func summarize(samples []float64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{}
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return phaseStats{
		Count: len(sorted),
		AvgMs: sum / float64(len(sorted)),
		MinMs: sorted[0],
		MaxMs: sorted[len(sorted)-1],
		P50Ms: percentile(sorted, 50),
		P95Ms: percentile(sorted, 95),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "wbench: "+format+"\n", args...)
	os.Exit(1)
}
