// Package nakka fetches and parses tournament pages from an n01-style
// online darts scoreboard so finished matches can be pulled into the
// local store.
package nakka

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/adrianmirek/darterassistant-sub002/internal/config"
	"github.com/adrianmirek/darterassistant-sub002/internal/constants"
)

type Client struct {
	baseURL string
	client  *fasthttp.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.NakkaBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     10,
			ReadTimeout:         constants.NakkaFetchTimeout,
			WriteTimeout:        constants.NakkaFetchTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// FetchTournament downloads the tournament overview page.
func (c *Client) FetchTournament(ctx context.Context, tournamentID string) ([]byte, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/?tid=%s", c.baseURL, tournamentID))
}

// FetchMatch downloads one match's leg-by-leg score page.
func (c *Client) FetchMatch(ctx context.Context, tournamentID, matchID string) ([]byte, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/n01_score.php?tid=%s&mid=%s", c.baseURL, tournamentID, matchID))
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, constants.NakkaFetchTimeout); err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("nakka returned status %d for %s", resp.StatusCode(), url)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
