package griddb

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultContainer = "camvidai"

// DefaultColumns is the fixed schema for generation records. Row values are
// positional and must follow this column order.
var DefaultColumns = []Column{
	{Name: "id", Type: "INTEGER"},
	{Name: "imageURL", Type: "STRING"},
	{Name: "prompt", Type: "STRING"},
	{Name: "generatedVideoURL", Type: "STRING"},
}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Record is one persisted generation: source image, prompt, result video.
type Record struct {
	ID                int
	ImageURL          string
	Prompt            string
	GeneratedVideoURL string
}

// SQLQuery is one statement for the /sql/dml/query endpoint.
type SQLQuery struct {
	Type string `json:"type"`
	Stmt string `json:"stmt"`
}

// QueryResult is the raw tabular result for one statement. Rows are
// positional; projecting them into named fields is the caller's job.
type QueryResult struct {
	Columns []Column `json:"columns"`
	Results [][]any  `json:"results"`
}

// StoreError is the single failure carrier for every GridDB operation.
type StoreError struct {
	Message string
	Status  int
	Code    int
	Details string
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

type Config struct {
	WebAPIURL string
	Username  string
	Password  string
	Container string
}

// Client wraps the GridDB Web API. It carries no mutable state beyond
// configuration and is safe to share across concurrent calls.
type Client struct {
	baseURL    string
	authToken  string
	container  string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	container := cfg.Container
	if container == "" {
		container = DefaultContainer
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.WebAPIURL, "/"),
		authToken:  base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password)),
		container:  container,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Container returns the container name this client reads and writes.
func (c *Client) Container() string {
	return c.container
}

// EnsureContainer checks for the container and creates it when the store
// reports it absent. Any non-404 answer to the existence check is treated as
// "already exists". Safe to call on every process start; concurrent creates
// from separate processes are arbitrated by the store itself.
func (c *Client) EnsureContainer(ctx context.Context) error {
	infoURL := c.baseURL + "/containers/" + c.container + "/info"
	req, err := http.NewRequestWithContext(ctx, "GET", infoURL, nil)
	if err != nil {
		return &StoreError{Message: "failed to create request", Details: err.Error()}
	}
	req.Header.Set("Authorization", "Basic "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &StoreError{Message: "failed to check container existence", Details: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNotFound {
		return nil
	}

	payload := map[string]any{
		"container_name": c.container,
		"container_type": "COLLECTION",
		"rowkey":         true,
		"columns":        DefaultColumns,
	}
	_, err = c.do(ctx, "POST", "/containers", payload)
	return err
}

// InsertRecord writes one record as a positional row matching the container
// column order: id, imageURL, prompt, generatedVideoURL.
func (c *Client) InsertRecord(ctx context.Context, rec Record) error {
	row := []any{rec.ID, rec.ImageURL, rec.Prompt, rec.GeneratedVideoURL}
	_, err := c.do(ctx, "PUT", "/containers/"+c.container+"/rows", [][]any{row})
	return err
}

// Query runs SQL-select statements and returns the raw tabular results.
func (c *Client) Query(ctx context.Context, queries []SQLQuery) ([]QueryResult, error) {
	if len(queries) == 0 {
		return nil, &StoreError{Message: "queries must be a non-empty list of SQL statements"}
	}

	body, err := c.do(ctx, "POST", "/sql/dml/query", queries)
	if err != nil {
		return nil, err
	}

	var results []QueryResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, &StoreError{Message: "failed to decode query response", Details: string(body)}
	}

	return results, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &StoreError{Message: "failed to marshal payload", Details: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &StoreError{Message: "failed to create request", Details: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Authorization", "Basic "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &StoreError{Message: "failed to make request to GridDB", Details: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StoreError{Message: "failed to read response body", Details: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StoreError{
			Message: fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
			Status:  resp.StatusCode,
			Code:    resp.StatusCode,
			Details: string(body),
		}
	}

	return body, nil
}
