// Package client reads a coordinator's status API: live progress, sealed
// runs and their exported archives.
package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"PhaseKing/internal/api"
	"PhaseKing/internal/ledger"
)

// Client connects to a coordinator's status API over HTTP.
type Client struct {
	baseURL string       // baseURL is "http://" + the status address
	http    *http.Client // http carries every request
}

// NewClient creates a client for the status API at addr (e.g. "127.0.0.1:8080").
// A full URL is accepted as well.
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Health checks the coordinator answers.
func (c *Client) Health() error {
	var resp map[string]string
	if err := c.httpGet("/health", &resp); err != nil {
		return err
	}

	if resp["status"] != "ok" {
		return fmt.Errorf("unhealthy: %q", resp["status"])
	}

	return nil
}

// Status returns the progress of the coordinator's current run.
func (c *Client) Status() (api.Status, error) {
	var st api.Status
	if err := c.httpGet("/status", &st); err != nil {
		return api.Status{}, err
	}

	return st, nil
}

// Runs lists the sealed runs in the coordinator's ledger.
func (c *Client) Runs() ([]api.RunView, error) {
	var runs []api.RunView
	if err := c.httpGet("/runs", &runs); err != nil {
		return nil, err
	}

	return runs, nil
}

// Export downloads the compressed archive of a sealed run.
func (c *Client) Export(id uuid.UUID) ([]byte, error) {
	return c.httpGetBytes("/runs/" + id.String() + "/export")
}

// Fetch downloads a run's archive, checks its integrity and verifies the
// verdict signature. The raw archive is returned alongside for storage.
func (c *Client) Fetch(id uuid.UUID) (*ledger.Archive, []byte, error) {
	data, err := c.Export(id)
	if err != nil {
		return nil, nil, err
	}

	archive, err := ledger.ReadArchive(data)
	if err != nil {
		return nil, nil, fmt.Errorf("read archive:\n%w", err)
	}

	if archive.Verdict.RunID != id {
		return nil, nil, fmt.Errorf("archive holds run %s, asked for %s", archive.Verdict.RunID, id)
	}

	if !archive.Verdict.Verify() {
		return nil, nil, fmt.Errorf("run %s: invalid verdict signature", id)
	}

	return archive, data, nil
}
