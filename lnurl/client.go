package lnurl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lightningnetwork/lnd/lnwire"
)

// maxBodySize caps how much of a service response is read.
const maxBodySize = 1 << 20

// Client talks to LNURL-pay services over a caller supplied http client.
type Client struct {
	http *http.Client
}

// NewClient returns a Client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{http: httpClient}
}

// FetchPayParams makes the first LNURL-pay request and validates the terms
// the service returns.
func (c *Client) FetchPayParams(ctx context.Context, target *Target) (
	*PayParams, error) {

	var payResp PayResponse
	if err := c.get(ctx, target.URL, &payResp); err != nil {
		return nil, err
	}

	params, err := ParsePayResponse(&payResp)
	if err != nil {
		return nil, err
	}

	log.Debugf("Fetched pay params from %s: min=%v max=%v "+
		"comment_allowed=%d", target.URL, params.Min, params.Max,
		params.CommentAllowed)

	return params, nil
}

// RequestInvoice asks the service's callback for an invoice of the given
// amount. The comment is only sent if the service accepts comments.
func (c *Client) RequestInvoice(ctx context.Context, params *PayParams,
	amt lnwire.MilliSatoshi, comment string) (string, error) {

	callback, err := url.Parse(params.Callback)
	if err != nil {
		return "", fmt.Errorf("invalid callback: %w", err)
	}

	query := callback.Query()
	query.Set("amount", strconv.FormatUint(uint64(amt), 10))
	if comment != "" && params.CommentsAllowed() {
		query.Set("comment", comment)
	}
	callback.RawQuery = query.Encode()

	var invoice InvoiceResponse
	if err := c.get(ctx, callback.String(), &invoice); err != nil {
		return "", err
	}

	if invoice.PayRequest == "" {
		return "", fmt.Errorf("response does not contain an invoice")
	}

	return invoice.PayRequest, nil
}

func (c *Client) get(ctx context.Context, target string,
	out interface{}) error {

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, target, nil,
	)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}

	// Services report errors with a status field, sometimes alongside a
	// 200 status code.
	var svcErr Error
	if err := json.Unmarshal(body, &svcErr); err == nil &&
		svcErr.Status == statusError {

		return &svcErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad http status code: %d", resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}
