package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxArchiveSize bounds a downloaded archive.
const maxArchiveSize = 64 << 20

// httpGet performs a GET request and decodes the JSON response.
func (c *Client) httpGet(path string, result any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(path, resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpGetBytes performs a GET request and returns the raw body.
func (c *Client) httpGetBytes(path string) ([]byte, error) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s:\n%w", path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(path, resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s:\n%w", path, err)
	}

	if len(data) > maxArchiveSize {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", path, maxArchiveSize)
	}

	return data, nil
}

// statusError reports a non-200 response, with the server's message if any.
func statusError(path string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}

	if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body.Error)
	}

	return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
}
