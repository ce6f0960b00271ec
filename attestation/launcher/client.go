// Package launcher asks an attestor for result bundles.
package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LaunchPath is the attestor gateway route for starting a task.
const LaunchPath = "/v1/tasks/launch"

// maxBodySize bounds how much of a gateway response is read.
const maxBodySize = 1 << 20

type launchRequest struct {
	AppID    string `json:"appId"`
	SchemaID string `json:"schemaId"`
	Account  string `json:"account"`
}

// ServiceError is a non-2xx gateway response. Its message is the response
// body verbatim, so attestor error codes survive for classification.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Body
}

// Client launches tasks on an HTTP attestor gateway.
type Client struct {
	baseURL string
	appID   string
	http    *http.Client
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger.Named("launcher") }
}

// NewClient returns a client for the gateway at baseURL, launching tasks
// under appID.
func NewClient(baseURL, appID string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("attestor base URL is required")
	}
	if appID == "" {
		return nil, errors.New("app id is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   appID,
		http:    http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Launch posts the task and returns the raw bundle. The call blocks until the
// gateway answers or ctx is done; no timeout is imposed here.
func (c *Client) Launch(ctx context.Context, schemaID string, account common.Address) ([]byte, error) {
	body, err := json.Marshal(launchRequest{AppID: c.appID, SchemaID: schemaID, Account: account.Hex()})
	if err != nil {
		return nil, errors.Wrap(err, "encode launch request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LaunchPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build launch request")
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("launching attestation task", zap.String("schema_id", schemaID), zap.String("account", account.Hex()))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "attestor request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read attestor response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("attestor refused task",
			zap.String("schema_id", schemaID),
			zap.Int("status", resp.StatusCode))
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
