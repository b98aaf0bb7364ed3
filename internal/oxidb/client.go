// Package oxidb is a TCP client for oxidb-server.
//
// Protocol: each message is [4-byte little-endian length][JSON payload].
// Server responds with {"ok": true, "data": ...} or {"ok": false, "error": "..."}.
package oxidb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// maxFrame bounds a single response payload.
const maxFrame = 64 << 20

// Client is a single connection to oxidb-server. Safe for concurrent use;
// requests on one connection are serialized.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
}

// Connect dials oxidb-server at host:port.
func Connect(ctx context.Context, host string, port int) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("oxidb: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// ------------------------------------------------------------------
// Low-level protocol
// ------------------------------------------------------------------

func (c *Client) sendRaw(data []byte) error {
	frame := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)
	_, err := c.conn.Write(frame)
	return err
}

func (c *Client) recvRaw() ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(c.conn, lenBuf); err != nil {
		return nil, fmt.Errorf("oxidb: read length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf)
	if length > maxFrame {
		return nil, fmt.Errorf("oxidb: frame of %d bytes exceeds limit", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, fmt.Errorf("oxidb: read payload: %w", err)
	}
	return payload, nil
}

func (c *Client) request(ctx context.Context, payload map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline, _ := ctx.Deadline()
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("oxidb: marshal request: %w", err)
	}
	if err := c.sendRaw(jsonBytes); err != nil {
		return nil, fmt.Errorf("oxidb: send: %w", err)
	}
	respBytes, err := c.recvRaw()
	if err != nil {
		return nil, err
	}
	var resp map[string]any
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("oxidb: unmarshal response: %w", err)
	}
	return resp, nil
}

func (c *Client) checked(ctx context.Context, payload map[string]any) (any, error) {
	resp, err := c.request(ctx, payload)
	if err != nil {
		return nil, err
	}
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		lower := strings.ToLower(errMsg)
		if strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate") {
			return nil, &DuplicateKeyError{Msg: errMsg}
		}
		return nil, &Error{Msg: errMsg}
	}
	return resp["data"], nil
}

// Ping sends a ping to the server. Returns "pong".
func (c *Client) Ping(ctx context.Context) (string, error) {
	data, err := c.checked(ctx, map[string]any{"cmd": "ping"})
	if err != nil {
		return "", err
	}
	s, _ := data.(string)
	return s, nil
}

// ------------------------------------------------------------------
// CRUD
// ------------------------------------------------------------------

// Insert inserts a single document and returns the raw response data,
// which carries the generated "id".
func (c *Client) Insert(ctx context.Context, collection string, doc map[string]any) (map[string]any, error) {
	data, err := c.checked(ctx, map[string]any{"cmd": "insert", "collection": collection, "doc": doc})
	if err != nil {
		return nil, err
	}
	m, _ := data.(map[string]any)
	return m, nil
}

// FindOptions holds optional parameters for Find.
type FindOptions struct {
	Sort  map[string]any
	Skip  *int
	Limit *int
}

func (c *Client) Find(ctx context.Context, collection string, query map[string]any, opts *FindOptions) ([]map[string]any, error) {
	payload := map[string]any{"cmd": "find", "collection": collection, "query": query}
	if opts != nil {
		if opts.Sort != nil {
			payload["sort"] = opts.Sort
		}
		if opts.Skip != nil {
			payload["skip"] = *opts.Skip
		}
		if opts.Limit != nil {
			payload["limit"] = *opts.Limit
		}
	}
	data, err := c.checked(ctx, payload)
	if err != nil {
		return nil, err
	}
	return toMapSlice(data), nil
}

// FindOne returns a single document matching a query, or nil.
func (c *Client) FindOne(ctx context.Context, collection string, query map[string]any) (map[string]any, error) {
	data, err := c.checked(ctx, map[string]any{"cmd": "find_one", "collection": collection, "query": query})
	if err != nil {
		return nil, err
	}
	m, _ := data.(map[string]any)
	return m, nil
}

// UpdateOne updates at most one document matching a query and returns the
// number of modified documents.
func (c *Client) UpdateOne(ctx context.Context, collection string, query, update map[string]any) (int, error) {
	data, err := c.checked(ctx, map[string]any{
		"cmd": "update_one", "collection": collection,
		"query": query, "update": update,
	})
	if err != nil {
		return 0, err
	}
	return countField(data, "modified"), nil
}

// DeleteOne deletes at most one document matching a query and returns the
// number of deleted documents.
func (c *Client) DeleteOne(ctx context.Context, collection string, query map[string]any) (int, error) {
	data, err := c.checked(ctx, map[string]any{
		"cmd": "delete_one", "collection": collection, "query": query,
	})
	if err != nil {
		return 0, err
	}
	return countField(data, "deleted"), nil
}

// Count returns the number of documents matching a query.
func (c *Client) Count(ctx context.Context, collection string, query map[string]any) (int, error) {
	data, err := c.checked(ctx, map[string]any{
		"cmd": "count", "collection": collection, "query": query,
	})
	if err != nil {
		return 0, err
	}
	return countField(data, "count"), nil
}

// ------------------------------------------------------------------
// Indexes
// ------------------------------------------------------------------

func (c *Client) CreateIndex(ctx context.Context, collection, field string) error {
	_, err := c.checked(ctx, map[string]any{"cmd": "create_index", "collection": collection, "field": field})
	return err
}

func (c *Client) CreateUniqueIndex(ctx context.Context, collection, field string) error {
	_, err := c.checked(ctx, map[string]any{"cmd": "create_unique_index", "collection": collection, "field": field})
	return err
}

func (c *Client) CreateCompositeIndex(ctx context.Context, collection string, fields []string) error {
	_, err := c.checked(ctx, map[string]any{"cmd": "create_composite_index", "collection": collection, "fields": fields})
	return err
}

// ------------------------------------------------------------------
// Helpers
// ------------------------------------------------------------------

func toMapSlice(data any) []map[string]any {
	arr, _ := data.([]any)
	result := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			result = append(result, m)
		}
	}
	return result
}

// countField reads a numeric count out of a response object. Servers that
// answer with a bare number are accepted too.
func countField(data any, key string) int {
	switch v := data.(type) {
	case float64:
		return int(v)
	case map[string]any:
		n, _ := v[key].(float64)
		return int(n)
	}
	return 0
}
