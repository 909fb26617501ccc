package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// StatusError is returned by Client when the API answers with a non-success status
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Erreur %d", e.Code)
}

// Client implements Bills against a remote bill store API
type Client struct {
	baseURL string
	tokens  *session.Tokens
	client  *http.Client
}

// NewClient creates a new Client for the API at baseURL
func NewClient(baseURL string, tokens *session.Tokens) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("store url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parsing store url: %w", err)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// do sends a request on behalf of owner and decodes a JSON response into out
func (c *Client) do(req *http.Request, owner string, out any) error {
	token, err := c.tokens.Issue(session.Employee(owner))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling bill store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// List returns the bills owned by owner
func (c *Client) List(ctx context.Context, owner string) ([]*bill.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/bills", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var bills []*bill.Bill
	if err := c.do(req, owner, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// Create uploads a proof document
func (c *Client) Create(ctx context.Context, owner string, file bill.File) (*FileRef, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", bill.DetectContentType(file))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/bills", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var ref FileRef
	if err := c.do(req, owner, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Update writes a full bill record
func (c *Client) Update(ctx context.Context, b *bill.Bill) (*bill.Bill, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshaling bill: %w", err)
	}

	endpoint := c.baseURL + "/api/bills"
	if b.ID != "" {
		endpoint += "/" + url.PathEscape(b.ID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var saved bill.Bill
	if err := c.do(req, b.Email, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}
