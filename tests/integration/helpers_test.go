//go:build integration

package integration

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type testClient struct {
	baseURL string
	apiKey  string
	owner   string
	client  *http.Client
}

func newTestClient(baseURL, apiKey, owner string) *testClient {
	return &testClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		owner:   owner,
		client:  &http.Client{},
	}
}

func (c *testClient) doRequest(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.owner != "" {
		req.Header.Set("X-Owner-ID", c.owner)
	}

	resp, err := c.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (c *testClient) createSession(t *testing.T, displayName string) map[string]any {
	t.Helper()
	resp := c.doRequest(t, "POST", "/v1/sessions", map[string]any{
		"display_name": displayName,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "failed to create session")
	return decodeResponse(t, resp)
}

func (c *testClient) openSession(t *testing.T, sessionID string) map[string]any {
	t.Helper()
	resp := c.doRequest(t, "POST", fmt.Sprintf("/v1/sessions/%s/open", sessionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to open session")
	return decodeResponse(t, resp)
}

func (c *testClient) suspendSession(t *testing.T, sessionID string) map[string]any {
	t.Helper()
	resp := c.doRequest(t, "POST", fmt.Sprintf("/v1/sessions/%s/suspend", sessionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to suspend session")
	return decodeResponse(t, resp)
}

func (c *testClient) deleteSession(t *testing.T, sessionID string, force bool) {
	t.Helper()
	path := fmt.Sprintf("/v1/sessions/%s", sessionID)
	if force {
		path += "?force=true"
	}
	resp := c.doRequest(t, "DELETE", path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to delete session")
	resp.Body.Close()
}

func (c *testClient) writeFile(t *testing.T, sessionID, path, text string) {
	t.Helper()
	resp := c.doRequest(t, "POST", fmt.Sprintf("/v1/sessions/%s/fs/write", sessionID), map[string]any{
		"path": path,
		"text": text,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to write file")
	resp.Body.Close()
}

func (c *testClient) readFile(t *testing.T, sessionID, path string) string {
	t.Helper()
	resp := c.doRequest(t, "GET", fmt.Sprintf("/v1/sessions/%s/fs/read?path=%s", sessionID, path), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to read file")
	body := decodeResponse(t, resp)
	decoded, err := base64.StdEncoding.DecodeString(body["content_base64"].(string))
	require.NoError(t, err)
	return string(decoded)
}

func (c *testClient) listFiles(t *testing.T, sessionID, path string) []map[string]any {
	t.Helper()
	resp := c.doRequest(t, "GET", fmt.Sprintf("/v1/sessions/%s/fs/list?path=%s", sessionID, path), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to list files")
	defer resp.Body.Close()
	var entries []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	return entries
}

func (c *testClient) exec(t *testing.T, sessionID, cmd string) map[string]any {
	t.Helper()
	resp := c.doRequest(t, "POST", fmt.Sprintf("/v1/sessions/%s/exec", sessionID), map[string]any{
		"cmd": cmd,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to exec")
	return decodeResponse(t, resp)
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}
