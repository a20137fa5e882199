package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"insurance-desk/internal/engine"
)

// HTTPSink posts submissions as JSON to a back-office API:
// POST {BaseURL}/{record type} -> {"token": "..."}.
type HTTPSink struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	// Dial overrides the client's dialer, e.g. for in-memory listeners.
	Dial fasthttp.DialFunc
}

type tokenResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func NewHTTPSink(cfg HTTPConfig) (*HTTPSink, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sink base url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HTTPSink{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client: &fasthttp.Client{
			Name:                "insurance-desk",
			Dial:                cfg.Dial,
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
		},
	}, nil
}

func (s *HTTPSink) Submit(ctx context.Context, sub engine.Submission) (string, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return "", engine.NewSinkFailure(engine.SinkRejected, "record could not be encoded", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + "/" + sub.RecordType)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := s.do(ctx, req, resp); err != nil {
		return "", engine.NewSinkFailure(engine.SinkTransport, "back office unreachable", err)
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		var tr tokenResponse
		if err := json.Unmarshal(resp.Body(), &tr); err != nil {
			return "", engine.NewSinkFailure(engine.SinkServer, "unreadable confirmation", err)
		}
		if tr.Token == "" {
			tr.Token = tr.ID
		}
		if tr.Token == "" {
			return "", engine.NewSinkFailure(engine.SinkServer, "confirmation token missing", nil)
		}
		return tr.Token, nil
	case status >= 400 && status < 500:
		return "", engine.NewSinkFailure(engine.SinkRejected, failureMessage(resp.Body(), "record rejected"), statusError(status))
	default:
		return "", engine.NewSinkFailure(engine.SinkServer, failureMessage(resp.Body(), "back office error"), statusError(status))
	}
}

// Fetch loads an existing record: GET {BaseURL}/{record type}/{id}.
func (s *HTTPSink) Fetch(ctx context.Context, recordType, id string) (engine.Record, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + "/" + recordType + "/" + id)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := s.do(ctx, req, resp); err != nil {
		return engine.Record{}, fmt.Errorf("fetch %s %s: %w", recordType, id, err)
	}
	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return engine.Record{}, fmt.Errorf("%w: %s %s", engine.ErrRecordNotFound, recordType, id)
	default:
		return engine.Record{}, fmt.Errorf("fetch %s %s: %w", recordType, id, statusError(resp.StatusCode()))
	}

	var rec engine.Record
	if err := json.Unmarshal(resp.Body(), &rec); err != nil {
		return engine.Record{}, fmt.Errorf("decode %s %s: %w", recordType, id, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	rec.RecordType = recordType
	return rec, nil
}

func (s *HTTPSink) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	return s.client.DoTimeout(req, resp, timeout)
}

func failureMessage(body []byte, fallback string) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return er.Message
	}
	return fallback
}

var errStatus = errors.New("unexpected status")

func statusError(status int) error {
	return fmt.Errorf("%w %d", errStatus, status)
}
