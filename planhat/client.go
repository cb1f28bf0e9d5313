package planhat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const DefaultBaseUrl = "https://api.planhat.com"

// Client submits bulk upserts to the Planhat REST API. The bearer token is
// injected at construction; an empty token is not rejected locally, requests
// simply fail remotely.
type Client struct {
	baseUrl string
	hc      *http.Client
}

func NewClient(baseUrl string, token string) *Client {
	if len(baseUrl) == 0 {
		baseUrl = DefaultBaseUrl
	}
	// without a token requests go out unauthenticated and fail remotely;
	// the oauth2 transport would reject the empty token before sending
	var hc = http.DefaultClient
	if len(token) > 0 {
		var source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), source)
	}
	return &Client{
		baseUrl: baseUrl,
		hc:      hc,
	}
}

// BulkUpsertCompanies issues one PUT carrying the whole batch. No retry, no
// partial-batch isolation.
func (c *Client) BulkUpsertCompanies(ctx context.Context, payloads []CompanyPayload) error {
	return c.bulkUpsert(ctx, "companies", payloads)
}

// BulkUpsertEndUsers issues one PUT carrying the whole batch.
func (c *Client) BulkUpsertEndUsers(ctx context.Context, payloads []EndUserPayload) error {
	return c.bulkUpsert(ctx, "endusers", payloads)
}

func (c *Client) bulkUpsert(ctx context.Context, resource string, payload any) (err error) {
	var uri *url.URL
	if uri, err = c.composeUrl(resource); err != nil {
		return
	}

	var data []byte
	if data, err = json.Marshal(payload); err != nil {
		return
	}

	var rq *http.Request
	if rq, err = http.NewRequestWithContext(ctx, http.MethodPut, uri.String(), bytes.NewBuffer(data)); err != nil {
		return
	}
	rq.Header.Add("Content-Type", "application/json")

	var body []byte
	if body, err = c.executeRequest(rq); err != nil {
		return
	}
	if len(body) > 0 {
		log.Debug().Str("endpoint", resource).Str("body", string(body)).Msg("planhat response")
	}
	return
}

func (c *Client) composeUrl(paths ...string) (result *url.URL, err error) {
	var uri *url.URL
	if uri, err = url.Parse(c.baseUrl); err != nil {
		return
	}
	var ruri *url.URL
	for _, path := range paths {
		if ruri, err = url.Parse(path); err != nil {
			return
		}
		if !strings.HasSuffix(uri.Path, "/") {
			uri.Path += "/"
		}
		uri = uri.ResolveReference(ruri)
	}

	result = uri
	return
}

func (c *Client) executeRequest(rq *http.Request) (body []byte, err error) {
	var rs *http.Response
	if rs, err = c.hc.Do(rq); err != nil {
		return
	}
	defer func() {
		_ = rs.Body.Close()
	}()
	var contentType = rs.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/") {
		if body, err = io.ReadAll(rs.Body); err != nil {
			return
		}
	}
	if rs.StatusCode >= 300 {
		var endpoint = rq.URL.String()
		if strings.HasPrefix(endpoint, c.baseUrl) {
			endpoint = endpoint[len(c.baseUrl):]
			endpoint = strings.Trim(endpoint, "/")
		}
		if len(body) > 0 {
			err = fmt.Errorf("%s planhat \"%s\" error: %s", rq.Method, endpoint, string(body))
		} else {
			err = fmt.Errorf("%s planhat \"%s\" error: Status code %d", rq.Method, endpoint, rs.StatusCode)
		}
		body = nil
	}
	return
}
