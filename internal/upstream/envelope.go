package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

type envelope struct {
	Success    *bool           `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination *pagination     `json:"pagination"`
	Statistics json.RawMessage `json:"statistics"`
}

// pagination accepts both totalRecords and totalCount; endpoints disagree.
type pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalRecords *int `json:"totalRecords"`
	TotalCount   *int `json:"totalCount"`
	Limit        int  `json:"limit"`
}

func (p *pagination) toDomain() domain.Pagination {
	out := domain.Pagination{
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		Limit:       p.Limit,
	}
	switch {
	case p.TotalCount != nil:
		out.TotalCount = *p.TotalCount
	case p.TotalRecords != nil:
		out.TotalCount = *p.TotalRecords
	}
	return out
}

// extractMessage pulls "message" out of an error body. structured is false
// when the body is not a JSON object at all.
func extractMessage(body []byte) (msg string, structured bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", false
	}
	if env.Message != "" {
		return env.Message, true
	}
	return env.Error, true
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// unwrap decodes the envelope of a successful exchange.
func unwrap(op string, resp *response) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return nil, &Error{Kind: KindUnstructured, Status: resp.status, Message: defaultMessage(op), Op: op, Err: err}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = defaultMessage(op)
		}
		return nil, &Error{Kind: KindHTTP, Status: resp.status, Message: msg, Op: op}
	}
	return &env, nil
}

func decodeData(op string, env *envelope, out any) error {
	if out == nil || isNull(env.Data) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindUnstructured, Message: defaultMessage(op), Op: op, Err: err}
	}
	return nil
}

func getList[T any](ctx context.Context, c *Client, op, path string, q url.Values) (*domain.Page[T], error) {
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: q})
	if err != nil {
		return nil, err
	}
	env, err := unwrap(op, resp)
	if err != nil {
		return nil, err
	}

	page := &domain.Page[T]{Rows: []T{}}
	if err := decodeData(op, env, &page.Rows); err != nil {
		return nil, err
	}
	if page.Rows == nil {
		page.Rows = []T{}
	}
	if env.Pagination != nil {
		page.Pagination = env.Pagination.toDomain()
	}
	if !isNull(env.Statistics) {
		page.Statistics = env.Statistics
	}
	return page, nil
}

// call sends a JSON request and decodes the envelope data into a fresh T.
func call[T any](ctx context.Context, c *Client, req request) (*T, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	env, err := unwrap(req.op, resp)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := decodeData(req.op, env, out); err != nil {
		return nil, err
	}
	return out, nil
}

// exec is call for endpoints whose data the caller ignores.
func exec(ctx context.Context, c *Client, req request) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	_, err = unwrap(req.op, resp)
	return err
}

// Blob is a binary export, returned only after the whole body was read.
type Blob struct {
	ContentType string
	Data        []byte
}

func download(ctx context.Context, c *Client, op, path string, q url.Values) (*Blob, error) {
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: q})
	if err != nil {
		return nil, err
	}
	// A JSON body on an export endpoint is an envelope, usually a failure.
	if bytes.HasPrefix(bytes.TrimSpace(resp.body), []byte("{")) {
		if _, err := unwrap(op, resp); err != nil {
			return nil, err
		}
	}
	if len(resp.body) == 0 {
		return nil, &Error{Kind: KindUnstructured, Status: resp.status, Message: defaultMessage(op), Op: op}
	}
	ct := resp.contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Blob{ContentType: ct, Data: resp.body}, nil
}

// StatusChange is the body of every approve/reject call. ExpectedStatus lets
// the upstream refuse with 409 when another operator got there first.
type StatusChange struct {
	Status         string `json:"status"`
	ExpectedStatus string `json:"expectedStatus,omitempty"`
}
