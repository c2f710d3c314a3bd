package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client talks REST to the backend:
//
//	GET    {base}/rest/{resource}?col=eq.v&order=...
//	POST   {base}/rest/{resource}
//	PATCH  {base}/rest/{resource}/{id}
//	DELETE {base}/rest/{resource}/{id}
//	POST   {base}/rest/rpc/{name}
//
// No per-call timeout is set on purpose: a hung call stalls the running sync
// pass until the transport gives up, and the pass is never cancelled midway.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

func (c *Client) Select(ctx context.Context, resource string, filter Filter, order string) ([]map[string]interface{}, error) {
	q := url.Values{}
	for col, v := range filter {
		q.Set(col, fmt.Sprintf("eq.%v", v))
	}
	if order != "" {
		q.Set("order", order)
	}
	endpoint := c.baseURL + "/rest/" + resource
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("select %s: decode: %w", resource, err)
	}
	return records, nil
}

func (c *Client) Insert(ctx context.Context, resource string, record interface{}) (map[string]interface{}, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/"+resource, record)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

func (c *Client) Update(ctx context.Context, resource string, id string, patch map[string]interface{}) error {
	_, err := c.do(ctx, http.MethodPatch, c.baseURL+"/rest/"+resource+"/"+url.PathEscape(id), patch)
	return err
}

func (c *Client) Delete(ctx context.Context, resource string, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.baseURL+"/rest/"+resource+"/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) CallProcedure(ctx context.Context, name string, args map[string]interface{}) error {
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/rpc/"+url.PathEscape(name), args)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// decodeRecord accepts either a single object or an array response (batch
// inserts come back as arrays; the first element carries the canonical id).
func decodeRecord(body []byte) (map[string]interface{}, error) {
	if len(body) == 0 {
		return map[string]interface{}{}, nil
	}
	var record map[string]interface{}
	if err := json.Unmarshal(body, &record); err == nil {
		return record, nil
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(records) == 0 {
		return map[string]interface{}{}, nil
	}
	return records[0], nil
}
