// Benchmark tool for load-testing Stratum ranking runs.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -items 500 -runs 3 -workers 4
//
// This tool:
//   1. Generates a synthetic inventory catalog
//   2. Imports it into one tenant per worker and requests ranking runs
//   3. Measures enqueue-to-completion latency and throughput
//   4. Compares crisp ABC classes against fuzzy classes (agreement matrix)
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// SyntheticItem is one generated catalog row.
type SyntheticItem struct {
	Risk        string
	Fluctuation string
	AvgStock    float64
	DailyUsage  float64
	UnitCost    float64
	LeadTime    int
	Consignment string
	UnitSize    string
}

// RankedItem carries the two classifications returned by the server.
type RankedItem struct {
	ID         int     `json:"id"`
	Class      string  `json:"class"`
	FuzzyClass string  `json:"fuzzyClass"`
	Score      float64 `json:"topsisScore"`
}

// RankingResponse is the subset of the ranking payload the benchmark reads.
type RankingResponse struct {
	ID       string       `json:"id"`
	Status   string       `json:"status"`
	Error    string       `json:"error"`
	Items    []RankedItem `json:"items"`
	Metadata struct {
		TotalMs int64 `json:"totalMs"`
	} `json:"metadata"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TotalRankings int64
	TotalItems    int64
	TotalErrors   int64

	LatencyMs   int64 // enqueue to completion, summed
	PipelineMs  int64 // server-reported pipeline time, summed
	MaxLatency  int64
	MinLatency  int64

	// Agreement[c][f] counts items classified crisp=c, fuzzy=f (A=0, B=1, C=2)
	Agreement [3][3]int64
}

var classIndex = map[string]int{"A": 0, "B": 1, "C": 2}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8080", "Stratum base URL")
	tenantPrefix := flag.String("tenant", "bench", "Tenant ID prefix (one tenant per worker)")
	token := flag.String("token", "", "Bearer token for authenticated servers")
	itemCount := flag.Int("items", 500, "Synthetic items per tenant")
	runs := flag.Int("runs", 3, "Ranking runs per tenant")
	workers := flag.Int("workers", 4, "Number of concurrent tenants")
	seed := flag.Int64("seed", 42, "Random seed for the synthetic catalog")
	timeout := flag.Duration("timeout", 2*time.Minute, "Per-ranking completion timeout")
	verbose := flag.Bool("verbose", false, "Print each ranking result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║           STRATUM BENCHMARK - Ranking Pipeline                ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nStratum URL: %s\n", *baseURL)
	fmt.Printf("Tenants:     %d (prefix %q)\n", *workers, *tenantPrefix)
	fmt.Printf("Items:       %d per tenant\n", *itemCount)
	fmt.Printf("Runs:        %d per tenant\n", *runs)
	fmt.Printf("Seed:        %d\n", *seed)
	fmt.Println()

	// Check Stratum is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Stratum not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Stratum is running:")
		fmt.Println("  go run cmd/stratum/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Stratum is healthy")

	// Generate the synthetic catalog (same seed for every tenant keeps
	// runs comparable across workers)
	fmt.Printf("\nGenerating %d synthetic items...\n", *itemCount)
	items := generateItems(*itemCount, *seed)
	catalog, err := buildCSV(items)
	if err != nil {
		fmt.Printf("ERROR: Failed to build catalog: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Catalog ready (%d bytes)\n", len(catalog))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	metrics := &Metrics{MinLatency: int64(^uint64(0) >> 1)}
	startTime := time.Now()

	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		tenant := fmt.Sprintf("%s-%02d", *tenantPrefix, w)
		g.Go(func() error {
			return runTenant(tenant, *baseURL, *token, catalog, *runs, *timeout, *verbose, metrics)
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Printf("ERROR: benchmark aborted: %v\n", err)
		os.Exit(1)
	}
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func generateItems(n int, seed int64) []SyntheticItem {
	rng := rand.New(rand.NewSource(seed))

	risks := []string{"Low", "Low", "Normal", "Normal", "High"}
	fluctuations := []string{"Increasing", "Stable", "Stable", "Unknown", "Decreasing", "Ending"}
	sizes := []string{"Small", "Medium", "Large"}

	items := make([]SyntheticItem, n)
	for i := range items {
		consignment := "No"
		if rng.Float64() < 0.3 {
			consignment = "Yes"
		}

		// Square the cost draw so a few items dominate spend, as real
		// catalogs do
		costDraw := rng.Float64()

		items[i] = SyntheticItem{
			Risk:        risks[rng.Intn(len(risks))],
			Fluctuation: fluctuations[rng.Intn(len(fluctuations))],
			AvgStock:    rng.Float64() * 500,
			DailyUsage:  rng.Float64() * 20,
			UnitCost:    1 + costDraw*costDraw*2000,
			LeadTime:    1 + rng.Intn(60),
			Consignment: consignment,
			UnitSize:    sizes[rng.Intn(len(sizes))],
		}
	}
	return items
}

func buildCSV(items []SyntheticItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Risk", "Demand fluctuation", "Average stock", "Daily usage", "Unit cost", "Lead time", "Consignment stock", "Unit size"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, it := range items {
		row := []string{
			it.Risk,
			it.Fluctuation,
			strconv.FormatFloat(it.AvgStock, 'f', 2, 64),
			strconv.FormatFloat(it.DailyUsage, 'f', 2, 64),
			strconv.FormatFloat(it.UnitCost, 'f', 2, 64),
			strconv.Itoa(it.LeadTime),
			it.Consignment,
			it.UnitSize,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func runTenant(tenant, baseURL, token string, catalog []byte, runs int, timeout time.Duration, verbose bool, metrics *Metrics) error {
	client := &http.Client{Timeout: 30 * time.Second}

	// 1. Import the catalog
	if err := importCatalog(client, baseURL, tenant, token, catalog); err != nil {
		return fmt.Errorf("tenant %s: import: %w", tenant, err)
	}

	// 2. Request rankings and wait for each to complete
	var last *RankingResponse
	for run := 0; run < runs; run++ {
		start := time.Now()

		requestID, err := requestRanking(client, baseURL, tenant, token)
		if err != nil {
			atomic.AddInt64(&metrics.TotalErrors, 1)
			if verbose {
				fmt.Printf("ERROR: %s run %d: %v\n", tenant, run+1, err)
			}
			continue
		}

		ranking, err := awaitRanking(client, baseURL, tenant, token, requestID, timeout)
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			atomic.AddInt64(&metrics.TotalErrors, 1)
			if verbose {
				fmt.Printf("ERROR: %s run %d: %v\n", tenant, run+1, err)
			}
			continue
		}

		atomic.AddInt64(&metrics.TotalRankings, 1)
		atomic.AddInt64(&metrics.TotalItems, int64(len(ranking.Items)))
		atomic.AddInt64(&metrics.LatencyMs, elapsed)
		atomic.AddInt64(&metrics.PipelineMs, ranking.Metadata.TotalMs)
		updateMax(&metrics.MaxLatency, elapsed)
		updateMin(&metrics.MinLatency, elapsed)

		if verbose {
			fmt.Printf("✓ %-10s | Run: %d | Items: %4d | Latency: %5dms | Pipeline: %4dms\n",
				tenant, run+1, len(ranking.Items), elapsed, ranking.Metadata.TotalMs)
		}

		last = ranking
	}

	// 3. Fold the final ranking into the agreement matrix
	if last != nil {
		for _, it := range last.Items {
			c, okC := classIndex[it.Class]
			f, okF := classIndex[it.FuzzyClass]
			if okC && okF {
				atomic.AddInt64(&metrics.Agreement[c][f], 1)
			}
		}
	}

	return nil
}

func importCatalog(client *http.Client, baseURL, tenant, token string, catalog []byte) error {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/items/import", bytes.NewReader(catalog))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/csv")
	setAuth(req, tenant, token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func requestRanking(client *http.Client, baseURL, tenant, token string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/rankings", nil)
	if err != nil {
		return "", err
	}
	setAuth(req, tenant, token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var queued struct {
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", err
	}
	return queued.RequestID, nil
}

// awaitRanking polls the ranking until it completes. A 404 just means the
// worker has not saved it yet.
func awaitRanking(client *http.Client, baseURL, tenant, token, id string, timeout time.Duration) (*RankingResponse, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/v1/rankings/"+id, nil)
		if err != nil {
			return nil, err
		}
		setAuth(req, tenant, token)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
		}

		var ranking RankingResponse
		err = json.NewDecoder(resp.Body).Decode(&ranking)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		switch ranking.Status {
		case "completed":
			return &ranking, nil
		case "failed":
			return nil, fmt.Errorf("ranking failed: %s", ranking.Error)
		}
		time.Sleep(100 * time.Millisecond)
	}

	return nil, fmt.Errorf("ranking %s did not complete within %s", id, timeout)
}

func setAuth(req *http.Request, tenant, token string) {
	req.Header.Set("X-Tenant-ID", tenant)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func updateMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

func updateMin(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v >= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 RUN STATISTICS\n")
	fmt.Printf("   Rankings Completed:  %d\n", m.TotalRankings)
	fmt.Printf("   Items Ranked:        %d\n", m.TotalItems)
	fmt.Printf("   Errors:              %d\n", m.TotalErrors)

	// Agreement between the crisp and fuzzy tracks over the final ranking
	// of each tenant
	var total, diagonal int64
	for c := 0; c < 3; c++ {
		for f := 0; f < 3; f++ {
			total += m.Agreement[c][f]
			if c == f {
				diagonal += m.Agreement[c][f]
			}
		}
	}

	fmt.Printf("\n📈 CRISP vs FUZZY AGREEMENT\n")
	fmt.Println("                         Fuzzy")
	fmt.Println("                    A         B         C")
	fmt.Println("              ┌─────────┬─────────┬─────────┐")
	labels := []string{"A", "B", "C"}
	for c := 0; c < 3; c++ {
		fmt.Printf("   Crisp   %s  │ %7d │ %7d │ %7d │\n",
			labels[c], m.Agreement[c][0], m.Agreement[c][1], m.Agreement[c][2])
		if c < 2 {
			fmt.Println("              ├─────────┼─────────┼─────────┤")
		}
	}
	fmt.Println("              └─────────┴─────────┴─────────┘")

	agreement := float64(0)
	if total > 0 {
		agreement = float64(diagonal) / float64(total)
	}

	farOff := m.Agreement[0][2] + m.Agreement[2][0] // A vs C in either direction

	fmt.Printf("\n🎯 AGREEMENT METRICS\n")
	fmt.Printf("   Agreement Rate:   %.4f  (items with identical tiers)\n", agreement)
	fmt.Printf("   Two-Tier Jumps:   %d  (A/C disagreements)\n", farOff)

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalRankings > 0 {
		avgLatency := float64(m.LatencyMs) / float64(m.TotalRankings)
		avgPipeline := float64(m.PipelineMs) / float64(m.TotalRankings)
		rps := float64(m.TotalRankings) / duration.Seconds()
		ips := float64(m.TotalItems) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms (enqueue to completion)\n", avgLatency)
		fmt.Printf("   Min/Max Latency:  %d ms / %d ms\n", m.MinLatency, m.MaxLatency)
		fmt.Printf("   Avg Pipeline:     %.2f ms (server-side)\n", avgPipeline)
		fmt.Printf("   Throughput:       %.2f rankings/sec, %.0f items/sec\n", rps, ips)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	switch {
	case total == 0:
		fmt.Println("   ❌ No classified items - check server logs")
	case agreement >= 0.9:
		fmt.Println("   ✅ Excellent agreement - crisp and fuzzy tracks align")
	case agreement >= 0.7:
		fmt.Println("   ⚠️  Moderate agreement - fuzzy spread shifts some tiers")
	default:
		fmt.Println("   ❌ Poor agreement - review mapping tables and fuzzy ranges")
	}

	if farOff > 0 {
		fmt.Println("   ⚠️  Two-tier jumps present - these items deserve manual review")
	}

	fmt.Println()
}
