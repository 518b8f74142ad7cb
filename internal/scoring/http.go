package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPClient talks to a scoring service over JSON/HTTP.
//
//	POST {base}/submissions        Idempotency-Key: <attemptId>
//	GET  {base}/results/{attemptId}
type HTTPClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewHTTPClient returns a client for the service at baseURL.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", sub.AttemptID)

	status, payload, hdr, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusConflict:
		return &Receipt{AttemptID: sub.AttemptID, Accepted: true, Duplicate: true}, nil
	case status >= 200 && status < 300:
		accepted := gjson.GetBytes(payload, "accepted")
		if accepted.Exists() && !accepted.Bool() {
			return nil, &ErrRejected{Reason: gjson.GetBytes(payload, "reason").String()}
		}
		return &Receipt{
			AttemptID: sub.AttemptID,
			Accepted:  true,
			Duplicate: gjson.GetBytes(payload, "duplicate").Bool(),
		}, nil
	default:
		return nil, statusError(status, payload, hdr)
	}
}

func (c *HTTPClient) FetchResult(ctx context.Context, attemptID string) (*ScoreSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/results/"+url.PathEscape(attemptID), nil)
	if err != nil {
		return nil, err
	}

	status, payload, hdr, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		if s := gjson.GetBytes(payload, "status").String(); s == "processing" || s == "pending" {
			return nil, ErrNotAvailable
		}
		var set ScoreSet
		if err := json.Unmarshal(payload, &set); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		if set.AttemptID == "" {
			set.AttemptID = attemptID
		}
		return &set, nil
	case http.StatusAccepted, http.StatusNotFound:
		return nil, ErrNotAvailable
	default:
		return nil, statusError(status, payload, hdr)
	}
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, http.Header, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return 0, nil, nil, ctxErr
		}
		return 0, nil, nil, &ErrUnavailable{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, nil, &ErrUnavailable{Err: err}
	}
	return resp.StatusCode, payload, resp.Header, nil
}

func statusError(status int, payload []byte, hdr http.Header) error {
	msg := gjson.GetBytes(payload, "error").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	err := fmt.Errorf("HTTP %d: %s", status, msg)

	switch {
	case status == http.StatusTooManyRequests:
		var after time.Duration
		if secs, perr := strconv.Atoi(hdr.Get("Retry-After")); perr == nil {
			after = time.Duration(secs) * time.Second
		}
		return &ErrRateLimit{RetryAfter: after, Err: err}
	case status >= 500:
		return &ErrUnavailable{Err: err}
	default:
		return &ErrRejected{Reason: msg}
	}
}
