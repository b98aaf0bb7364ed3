// Package airtable is a small client for the Airtable Web API: the metadata
// endpoints used by the form builder and record creation for submissions.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

const DefaultBaseURL = "https://api.airtable.com/v0"

var tracer = otel.Tracer("github.com/parisxmas/OxiDB/OxiForms/internal/airtable")

// Client calls the Airtable API on behalf of one user. Requests are
// authorized by the token source, which refreshes expired tokens.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for baseURL. A nil base uses http.DefaultTransport.
func NewClient(baseURL string, ts oauth2.TokenSource, base http.RoundTripper) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &oauth2.Transport{Source: ts, Base: base},
		},
	}
}

type WhoAmI struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Scopes []string `json:"scopes,omitempty"`
}

type Base struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PermissionLevel string `json:"permissionLevel"`
}

type Choice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FieldOptions struct {
	Choices []Choice `json:"choices,omitempty"`
}

type Field struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Type    string        `json:"type"`
	Options *FieldOptions `json:"options,omitempty"`
}

type Table struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PrimaryFieldID string  `json:"primaryFieldId"`
	Fields         []Field `json:"fields"`
}

// FormField is a table field a form question can be bound to.
type FormField struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Type    models.QuestionType `json:"type"`
	Options []string            `json:"options"`
}

type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

func (c *Client) WhoAmI(ctx context.Context) (*WhoAmI, error) {
	var out WhoAmI
	if err := c.do(ctx, http.MethodGet, "/meta/whoami", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBases returns every base the token can see, following pagination.
func (c *Client) ListBases(ctx context.Context) ([]Base, error) {
	bases := []Base{}
	offset := ""
	for {
		q := url.Values{}
		if offset != "" {
			q.Set("offset", offset)
		}
		var page struct {
			Bases  []Base `json:"bases"`
			Offset string `json:"offset"`
		}
		if err := c.do(ctx, http.MethodGet, "/meta/bases", q, nil, &page); err != nil {
			return nil, err
		}
		bases = append(bases, page.Bases...)
		if page.Offset == "" || page.Offset == offset {
			return bases, nil
		}
		offset = page.Offset
	}
}

func (c *Client) ListTables(ctx context.Context, baseID string) ([]Table, error) {
	var out struct {
		Tables []Table `json:"tables"`
	}
	if err := c.do(ctx, http.MethodGet, "/meta/bases/"+url.PathEscape(baseID)+"/tables", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Tables == nil {
		out.Tables = []Table{}
	}
	return out.Tables, nil
}

// TableFields returns the fields of one table whose type a question can
// use, with select choices flattened to their names.
func (c *Client) TableFields(ctx context.Context, baseID, tableID string) ([]FormField, error) {
	tables, err := c.ListTables(ctx, baseID)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if t.ID != tableID && t.Name != tableID {
			continue
		}
		fields := []FormField{}
		for _, f := range t.Fields {
			typ := models.QuestionType(f.Type)
			if !typ.Supported() {
				continue
			}
			options := []string{}
			if f.Options != nil {
				for _, ch := range f.Options.Choices {
					options = append(options, ch.Name)
				}
			}
			fields = append(fields, FormField{ID: f.ID, Name: f.Name, Type: typ, Options: options})
		}
		return fields, nil
	}
	return nil, &APIError{Status: http.StatusNotFound, Type: "TABLE_NOT_FOUND", Message: fmt.Sprintf("table %s not found in base %s", tableID, baseID)}
}

// CreateRecord inserts one record and returns it as Airtable stored it.
func (c *Client) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*Record, error) {
	body := map[string]any{
		"records": []map[string]any{{"fields": fields}},
	}
	var out struct {
		Records []Record `json:"records"`
	}
	path := "/" + url.PathEscape(baseID) + "/" + url.PathEscape(tableID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	if len(out.Records) == 0 {
		return nil, fmt.Errorf("airtable: create record: empty response")
	}
	return &out.Records[0], nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := tracer.Start(ctx, "airtable "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			attribute.String("airtable.path", path),
		),
	)
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("airtable: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("airtable: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("airtable: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("airtable: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, data)
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("airtable: decode response: %w", err)
	}
	return nil
}
