// Command stratumctl is the operator CLI for a running Stratum instance:
// import item catalogs, trigger and follow ranking runs, download ranking
// exports and mint API tokens.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/opensource-logistics/stratum/internal/api"
	"github.com/opensource-logistics/stratum/internal/domain"
)

func newURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "url",
		Usage:   "Base URL of the Stratum server",
		Value:   "http://localhost:8080",
		EnvVars: []string{"STRATUM_URL"},
	}
}

func newTenantFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "tenant",
		Usage:   "Tenant ID sent with every request",
		Value:   "default",
		EnvVars: []string{"STRATUM_TENANT"},
	}
}

func newTokenFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "token",
		Usage:   "Bearer token for authenticated servers",
		EnvVars: []string{"STRATUM_TOKEN"},
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "stratumctl",
		Usage: "Operate a Stratum inventory ranking server",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import an item catalog from a CSV file",
				Flags: []cli.Flag{
					newURLFlag(),
					newTenantFlag(),
					newTokenFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the CSV file",
						Required: true,
					},
				},
				Action: runImport,
			},
			{
				Name:  "rank",
				Usage: "Request a ranking run",
				Flags: []cli.Flag{
					newURLFlag(),
					newTenantFlag(),
					newTokenFlag(),
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Poll until the ranking completes",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for completion",
						Value: 60 * time.Second,
					},
				},
				Action: runRank,
			},
			{
				Name:  "export",
				Usage: "Download a ranking as CSV",
				Flags: []cli.Flag{
					newURLFlag(),
					newTenantFlag(),
					newTokenFlag(),
					&cli.StringFlag{
						Name:  "ranking",
						Usage: "Ranking ID, or 'latest'",
						Value: "latest",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output file (default ranking-<id>.csv)",
					},
				},
				Action: runExport,
			},
			{
				Name:  "token",
				Usage: "Mint a JWT for an authenticated server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "secret",
						Usage:    "Signing secret (must match the server's STRATUM_AUTH_SECRET)",
						Required: true,
						EnvVars:  []string{"STRATUM_AUTH_SECRET"},
					},
					&cli.StringFlag{
						Name:  "tenant",
						Usage: "Tenant the token is scoped to (empty = all tenants)",
					},
					&cli.StringFlag{
						Name:  "subject",
						Usage: "Token subject",
						Value: "stratumctl",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 24 * time.Hour,
					},
				},
				Action: runToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// client wraps the HTTP plumbing shared by all server commands.
type client struct {
	baseURL string
	tenant  string
	token   string
	hc      *http.Client
}

func newClient(c *cli.Context) *client {
	return &client{
		baseURL: strings.TrimRight(c.String("url"), "/"),
		tenant:  c.String("tenant"),
		token:   c.String("token"),
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Tenant-ID", c.tenant)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.hc.Do(req)
}

// decodeOrFail reads the response body and decodes it into out, turning
// non-2xx statuses into errors that carry the server's message.
func decodeOrFail(resp *http.Response, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func runImport(c *cli.Context) error {
	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	resp, err := newClient(c).do(http.MethodPost, "/v1/items/import", "text/csv", file)
	if err != nil {
		return fmt.Errorf("import request failed: %w", err)
	}

	var result struct {
		Total    int `json:"total"`
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	if err := decodeOrFail(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d rows (%d skipped)\n", result.Imported, result.Total, result.Skipped)
	return nil
}

func runRank(c *cli.Context) error {
	cl := newClient(c)

	resp, err := cl.do(http.MethodPost, "/v1/rankings", "application/json", nil)
	if err != nil {
		return fmt.Errorf("ranking request failed: %w", err)
	}

	var queued struct {
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	if err := decodeOrFail(resp, &queued); err != nil {
		return err
	}

	fmt.Printf("Ranking %s queued\n", queued.RequestID)
	if !c.Bool("wait") {
		return nil
	}

	ranking, err := pollRanking(cl, queued.RequestID, c.Duration("timeout"))
	if err != nil {
		return err
	}

	if ranking.Status == domain.RankingFailed {
		return fmt.Errorf("ranking failed: %s", ranking.Error)
	}

	crisp := ranking.TierCounts(false)
	fuzzy := ranking.TierCounts(true)
	fmt.Printf("Ranking %s completed: %d items in %dms\n",
		ranking.ID, len(ranking.Items), ranking.Metadata.TotalMs)
	fmt.Printf("  Crisp tiers:  A=%d  B=%d  C=%d\n",
		crisp[domain.ClassA], crisp[domain.ClassB], crisp[domain.ClassC])
	fmt.Printf("  Fuzzy tiers:  A=%d  B=%d  C=%d\n",
		fuzzy[domain.ClassA], fuzzy[domain.ClassB], fuzzy[domain.ClassC])
	return nil
}

// pollRanking follows a queued ranking until it leaves the pending state.
// 404s are expected while the worker has not saved the ranking yet.
func pollRanking(cl *client, id string, timeout time.Duration) (*domain.Ranking, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := cl.do(http.MethodGet, "/v1/rankings/"+id, "", nil)
		if err != nil {
			return nil, fmt.Errorf("poll failed: %w", err)
		}

		if resp.StatusCode == http.StatusNotFound {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var ranking domain.Ranking
		if err := decodeOrFail(resp, &ranking); err != nil {
			return nil, err
		}

		switch ranking.Status {
		case domain.RankingCompleted, domain.RankingFailed:
			return &ranking, nil
		}
		time.Sleep(500 * time.Millisecond)
	}

	return nil, fmt.Errorf("ranking %s did not complete within %s", id, timeout)
}

func runExport(c *cli.Context) error {
	cl := newClient(c)

	id := c.String("ranking")
	if id == "latest" {
		resp, err := cl.do(http.MethodGet, "/v1/rankings/latest", "", nil)
		if err != nil {
			return fmt.Errorf("resolve latest ranking: %w", err)
		}
		var ranking domain.Ranking
		if err := decodeOrFail(resp, &ranking); err != nil {
			return err
		}
		id = ranking.ID
	}

	resp, err := cl.do(http.MethodGet, "/v1/rankings/"+id+"/export", "", nil)
	if err != nil {
		return fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	out := c.String("out")
	if out == "" {
		out = fmt.Sprintf("ranking-%s.csv", id)
	}

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", out, n)
	return nil
}

func runToken(c *cli.Context) error {
	token, err := api.GenerateToken(c.String("secret"), c.String("tenant"), c.String("subject"), c.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}
