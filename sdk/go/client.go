package fixturesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Ticket Fixture HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Event is one entry of a ticket's status history.
type Event struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	BlockedBy string `json:"blockedBy,omitempty"`
}

// Ticket mirrors one fixture row. Field names follow the CSV header.
type Ticket struct {
	ID                                 int     `json:"id"`
	Title                              string  `json:"title"`
	Description                        string  `json:"description"`
	Status                             string  `json:"status"`
	CreatedOn                          string  `json:"createdOn"`
	ClosedOn                           string  `json:"closedOn"`
	Sprint                             string  `json:"sprint"`
	Team                               string  `json:"team"`
	Owner                              string  `json:"owner"`
	Assignee                           string  `json:"assignee"`
	Reporter                           string  `json:"reporter"`
	Blocked                            bool    `json:"blocked"`
	BlockedBy                          string  `json:"blockedBy"`
	BlockedSince                       string  `json:"blockedSince"`
	UnblockedAt                        string  `json:"unblockedAt"`
	EventLog                           []Event `json:"eventLog"`
	TimeInDevelopmentHours             int     `json:"timeInDevelopmentHours"`
	TimeInTechQCHours                  int     `json:"timeInTechQCHours"`
	TimeInBusinessQCHours              int     `json:"timeInBusinessQCHours"`
	TimeInSprintBacklogHours           int     `json:"timeInSprintBacklogHours"`
	TimeInBlockedForClarificationHours int     `json:"timeInBlockedforClarificationHours"`
	TotalCycleTimeHours                int     `json:"totalCycleTimeHours"`
	Priority                           string  `json:"priority"`
	Tags                               string  `json:"tags"`
	CodeReviewCount                    int     `json:"codeReviewCount"`
	RevisionCount                      int     `json:"revisionCount"`
	ReleaseVersion                     string  `json:"releaseVersion"`
}

// Run describes a stored dataset.
type Run struct {
	ID        string `json:"id"`
	Seed      int64  `json:"seed"`
	Count     int    `json:"count"`
	Reference string `json:"reference"`
	CreatedAt string `json:"created_at"`
}

// RunRequest overrides the server defaults for a new run. Nil fields keep the default.
type RunRequest struct {
	Seed      *int64 `json:"seed,omitempty"`
	Count     *int   `json:"count,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health reports the server status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	err := c.do(ctx, http.MethodGet, "health", nil, &resp)
	return resp.Status, err
}

// Tickets generates a dataset on the server. Zero count uses the server default.
func (c *Client) Tickets(ctx context.Context, seed int64, count int) ([]Ticket, error) {
	q := url.Values{}
	q.Set("seed", strconv.FormatInt(seed, 10))
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	var resp []Ticket
	err := c.do(ctx, http.MethodGet, "tickets?"+q.Encode(), nil, &resp)
	return resp, err
}

// CreateRun generates and stores a dataset.
func (c *Client) CreateRun(ctx context.Context, in RunRequest) (Run, error) {
	var resp Run
	err := c.do(ctx, http.MethodPost, "runs", in, &resp)
	return resp, err
}

// ListRuns returns stored runs, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	endpoint := "runs"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Run
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// RunTickets returns the tickets of a stored run, optionally filtered by status.
func (c *Client) RunTickets(ctx context.Context, runID, status string) ([]Ticket, error) {
	endpoint := fmt.Sprintf("runs/%s/tickets", url.PathEscape(runID))
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Ticket
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// TicketEvents returns the event log of one stored ticket.
func (c *Client) TicketEvents(ctx context.Context, runID string, ticketID int) ([]Event, error) {
	var resp []Event
	endpoint := fmt.Sprintf("runs/%s/tickets/%d/events", url.PathEscape(runID), ticketID)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
