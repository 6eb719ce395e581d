package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/taurusgroup/tss-factors/pkg/ecdsa"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
)

// APIError is a non 2xx response of the signing server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("signer: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client calls a signing server.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{URL: strings.TrimSuffix(url, "/"), HTTPClient: http.DefaultClient}
}

// FactorPub returns the factor public key of the server.
func (c *Client) FactorPub(ctx context.Context) (curve.Point, error) {
	var resp FactorPubResponse
	if err := c.do(ctx, http.MethodGet, "/factorPub", nil, &resp); err != nil {
		return nil, err
	}
	return resp.FactorPub.Point()
}

// Sign asks the server to sign and returns the signature it produced.
func (c *Client) Sign(ctx context.Context, req *SignRequest) (*ecdsa.Signature, error) {
	var resp SignResponse
	if err := c.do(ctx, http.MethodPost, "/sign", req, &resp); err != nil {
		return nil, err
	}
	return ecdsa.FromHex(resp.R, resp.S, resp.V)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("signer: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, body)
	if err != nil {
		return fmt.Errorf("signer: could not initialize request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signer: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("signer: read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) != nil || errResp.Error.Code == "" {
			return &APIError{StatusCode: resp.StatusCode, Code: CodeUnavailable, Message: strings.TrimSpace(string(data))}
		}
		return &APIError{StatusCode: resp.StatusCode, Code: errResp.Error.Code, Message: errResp.Error.Message}
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("signer: parse response: %w", err)
	}
	return nil
}
