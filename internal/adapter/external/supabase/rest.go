package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"api-go-template/internal/platform/httpclient"
)

const objectMediaType = "application/vnd.pgrst.object+json"

// Query is a PostgREST read. Filters use PostgREST operators, for example
// Filters.Set("owner_id", "eq."+id).
type Query struct {
	Filters url.Values
	Select  string
	Order   string
	Limit   int
	Offset  int
	// Count asks for the exact total of matching rows.
	Count bool
	// Single expects exactly one row; none yields PGRST116.
	Single bool
}

func (q Query) values() url.Values {
	v := url.Values{}
	for k, vals := range q.Filters {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	v.Set("select", defaultString(q.Select, "*"))
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// Select reads rows of table into out. The returned total is set only when
// q.Count is true.
func (c *Client) Select(ctx context.Context, table string, q Query, out any) (int, error) {
	req, err := c.restRequest(ctx, http.MethodGet, table, q.values(), nil)
	if err != nil {
		return 0, err
	}
	if q.Count {
		req.Header.Set("Prefer", "count=exact")
	}
	if q.Single {
		req.Header.Set("Accept", objectMediaType)
	}
	resp, err := c.rest.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return 0, restError(resp)
	}
	total := 0
	if q.Count {
		if total, err = contentRangeTotal(resp.Header.Get("Content-Range")); err != nil {
			resp.Body.Close()
			return 0, err
		}
	}
	return total, httpclient.DecodeJSON(resp, out)
}

// Insert creates one row and decodes the stored representation into out.
func (c *Client) Insert(ctx context.Context, table string, row, out any) error {
	req, err := c.restRequest(ctx, http.MethodPost, table, url.Values{"select": {"*"}}, row)
	if err != nil {
		return err
	}
	return c.doObject(req, out)
}

// Update patches the single row matching filters.
func (c *Client) Update(ctx context.Context, table string, filters url.Values, patch, out any) error {
	v := url.Values{"select": {"*"}}
	for k, vals := range filters {
		v[k] = vals
	}
	req, err := c.restRequest(ctx, http.MethodPatch, table, v, patch)
	if err != nil {
		return err
	}
	return c.doObject(req, out)
}

// Delete removes the single row matching filters.
func (c *Client) Delete(ctx context.Context, table string, filters url.Values) error {
	v := url.Values{"select": {"id"}}
	for k, vals := range filters {
		v[k] = vals
	}
	req, err := c.restRequest(ctx, http.MethodDelete, table, v, nil)
	if err != nil {
		return err
	}
	return c.doObject(req, nil)
}

// Ping checks that PostgREST answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.restRequest(ctx, http.MethodHead, "", nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.rest.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("postgrest: status %d", resp.StatusCode)
	}
	return nil
}

// doObject runs a write that must touch exactly one row.
func (c *Client) doObject(req *http.Request, out any) error {
	req.Header.Set("Prefer", "return=representation")
	req.Header.Set("Accept", objectMediaType)
	resp, err := c.rest.Do(req.Context(), req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return restError(resp)
	}
	return httpclient.DecodeJSON(resp, out)
}

func (c *Client) restRequest(ctx context.Context, method, table string, q url.Values, body any) (*http.Request, error) {
	u := c.restURL(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := httpclient.NewJSONRequest(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	return req, nil
}

// contentRangeTotal reads the total from "0-9/25" or "*/0".
func contentRangeTotal(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 || h[i+1:] == "*" {
		return 0, fmt.Errorf("postgrest: content-range %q has no total", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("postgrest: content-range %q: %w", h, err)
	}
	return n, nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
