// Package fetch holds the http client every outbound request of a run goes through.
package fetch

import (
	"context"
	"fmt"
	"time"

	"fabriq-content/internal/telemetry"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent identifies the pipeline to the catalog sites.
const DefaultUserAgent = "FabriqContentBot/1.0"

type ClientOptions struct {
	UserAgent string
	// zero leaves the transport default, no timeout
	Timeout time.Duration
}

// NewClient returns an instrumented resty client that never retries.
func NewClient(opts ClientOptions, tel telemetry.API) *resty.Client {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	if tel == nil {
		tel = telemetry.NewSlogAPI()
	}

	client := resty.New()
	client.SetHeader("User-Agent", userAgent)
	client.SetRetryCount(0)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	telemetry.InstrumentResty(client, "fabriq.internal.fetch/http", tel)
	return client
}

// HTTPStatusError is returned for any response outside of 2xx.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

type Pages struct {
	http *resty.Client
}

func NewPages(client *resty.Client) Pages {
	return Pages{http: client}
}

// Get returns the body of the page at link.
func (p Pages) Get(ctx context.Context, link string) (string, error) {
	res, err := p.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return "", err
	}
	if !res.IsSuccess() {
		return "", &HTTPStatusError{StatusCode: res.StatusCode()}
	}
	return res.String(), nil
}
