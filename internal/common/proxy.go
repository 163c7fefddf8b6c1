package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	OK                     int = 200
	BAD_REQUEST            int = 400
	UNAUTHORIZED           int = 401
	FORBIDDEN              int = 403
	DATA_NOT_FOUND         int = 404
	METHOD_NOT_ALLOWED     int = 405
	UNSUPPORTED_MEDIA_TYPE int = 415
	RATE_LIMIT_EXCEEDED    int = 429
	INTERNAL_SERVER_ERROR  int = 500
	BAD_GATEWAY            int = 502
	SERVICE_UNAVAILABLE    int = 503
	GATEWAY_TIMEOUT        int = 504
)

var messages = map[int]string{
	OK:                     "OK",
	BAD_REQUEST:            "Bad request",
	UNAUTHORIZED:           "Unauthorized",
	FORBIDDEN:              "Forbidden",
	DATA_NOT_FOUND:         "Data not found",
	METHOD_NOT_ALLOWED:     "Method not allowed",
	UNSUPPORTED_MEDIA_TYPE: "Unsupported media type",
	RATE_LIMIT_EXCEEDED:    "Rate limit exceeded",
	INTERNAL_SERVER_ERROR:  "Internal server error",
	BAD_GATEWAY:            "Bad gateway",
	SERVICE_UNAVAILABLE:    "Service unavailable",
	GATEWAY_TIMEOUT:        "Gateway timeout",
}

var ErrRateLimited = errors.New("request not allowed by the rate limiter")

// Non 200 answer from the upstream
type StatusError struct {
	Url  string
	Code int
}

func (e *StatusError) Error() string {
	message, ok := messages[e.Code]
	if !ok {
		message = "Status code not understood"
	}
	return fmt.Sprintf("%d %s for %s", e.Code, message, e.Url)
}

// Called with the outcome of every request that reached the upstream
type RequestObserver func(url string, code int, elapsed time.Duration)

type Proxy struct {
	header      map[string]string
	client      *http.Client
	rateLimiter *RateLimiter
	observer    RequestObserver
}

func NewProxy(header map[string]string, restrictions []Restriction, timeout time.Duration) *Proxy {
	return &Proxy{
		header:      header,
		client:      &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(restrictions),
	}
}

func (proxy *Proxy) SetObserver(observer RequestObserver) {
	proxy.observer = observer
}

// Make a request to the provided url, indicating if it is vital.
// The request will be performed depending on the status of the rate limiter
func (proxy *Proxy) Request(ctx context.Context, url string, vital bool) ([]byte, error) {

	// ask for permission to execute the request
	// and wait if necessary
	if !proxy.rateLimiter.Allowed(ctx, vital) {
		log.Warn().Msg("Rate limiter is not allowing the request")
		return nil, ErrRateLimited
	}

	// Create the request and add the header
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	for key, value := range proxy.header {
		request.Header.Set(key, value)
	}

	// Perform the request
	start := time.Now()
	res, err := proxy.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not perform request: %w", err)
	}
	defer res.Body.Close()
	if proxy.observer != nil {
		proxy.observer(request.URL.Host+request.URL.Path, res.StatusCode, time.Since(start))
	}
	log.Debug().Int("status", res.StatusCode).Str("path", request.URL.Path).Msg(messages[res.StatusCode])

	switch res.StatusCode {
	case OK:
		// Read the response
		stream, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read the response for %s: %w", request.URL.Path, err)
		}
		return stream, nil
	case RATE_LIMIT_EXCEEDED:
		proxy.rateLimiter.ReceivedRateLimit()
	}
	return nil, &StatusError{Url: request.URL.Path, Code: res.StatusCode}
}
