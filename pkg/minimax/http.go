package minimax

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type httpClient struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
}

func newHTTPClient(cfg *clientConfig) *httpClient {
	return &httpClient{
		client:     cfg.httpClient,
		baseURL:    cfg.baseURL,
		apiKey:     cfg.apiKey,
		maxRetries: cfg.maxRetries,
	}
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

// request posts body to path and decodes the response into result, retrying
// transient failures with exponential backoff.
func (h *httpClient) request(ctx context.Context, method, path string, body, result any) error {
	var bodyData []byte
	if body != nil {
		var err error
		bodyData, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("minimax: marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := h.doRequest(ctx, method, path, bodyData, result)
		if err == nil {
			return nil
		}
		lastErr = err

		if apiErr, ok := AsError(err); ok && !apiErr.Retryable() {
			return err
		}
	}
	return lastErr
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, bodyData []byte, result any) error {
	var bodyReader io.Reader
	if bodyData != nil {
		bodyReader = bytes.NewReader(bodyData)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("minimax: create request: %w", err)
	}
	h.setHeaders(req)
	if bodyData != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("minimax: do request: %w", err)
	}
	defer resp.Body.Close()

	return h.handleResponse(resp, result)
}

// requestStream posts body to path and hands back the raw response for SSE
// consumption. Non-200 responses are drained and turned into errors.
func (h *httpClient) requestStream(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("minimax: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("minimax: create request: %w", err)
	}
	h.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("minimax: do request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("minimax: read error response: %w", err)
		}
		return nil, h.parseError(body, resp.StatusCode)
	}
	return resp, nil
}

func (h *httpClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("User-Agent", "minerva-minimax-go/1.0")
}

func (h *httpClient) handleResponse(resp *http.Response, result any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("minimax: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return h.parseError(body, resp.StatusCode)
	}

	// API errors come back as 200 with a non-zero base_resp status.
	var probe struct {
		BaseResp *baseResp `json:"base_resp"`
		TraceID  string    `json:"trace_id"`
	}
	if err := json.Unmarshal(body, &probe); err == nil {
		if probe.BaseResp != nil && probe.BaseResp.StatusCode != 0 {
			return &Error{
				StatusCode: probe.BaseResp.StatusCode,
				StatusMsg:  probe.BaseResp.StatusMsg,
				TraceID:    probe.TraceID,
				HTTPStatus: resp.StatusCode,
			}
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("minimax: unmarshal response: %w", err)
		}
	}
	return nil
}

func (h *httpClient) parseError(body []byte, httpStatus int) error {
	var probe struct {
		BaseResp *baseResp `json:"base_resp"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.BaseResp != nil {
		return &Error{
			StatusCode: probe.BaseResp.StatusCode,
			StatusMsg:  probe.BaseResp.StatusMsg,
			HTTPStatus: httpStatus,
		}
	}
	return &Error{
		StatusCode: httpStatus,
		StatusMsg:  string(body),
		HTTPStatus: httpStatus,
	}
}

// sseReader reads data events off a text/event-stream response.
type sseReader struct {
	reader *bufio.Reader
	resp   *http.Response
}

func newSSEReader(resp *http.Response) *sseReader {
	return &sseReader{
		reader: bufio.NewReader(resp.Body),
		resp:   resp,
	}
}

// readEvent returns the next event's data, or done on EOF or the [DONE]
// marker.
func (r *sseReader) readEvent() (data []byte, done bool, err error) {
	for {
		line, err := r.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil, true, nil
			}
			return nil, false, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if len(data) > 0 {
				return data, false, nil
			}
			continue
		}
		if bytes.HasPrefix(line, []byte("data:")) {
			eventData := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
			if bytes.Equal(eventData, []byte("[DONE]")) {
				return nil, true, nil
			}
			data = eventData
		}
	}
}

func (r *sseReader) close() {
	r.resp.Body.Close()
}

// decodeHexAudio decodes the hex audio payload, tolerating stray whitespace.
func decodeHexAudio(hexData string) ([]byte, error) {
	hexData = strings.ReplaceAll(hexData, " ", "")
	hexData = strings.ReplaceAll(hexData, "\n", "")
	return hex.DecodeString(hexData)
}
