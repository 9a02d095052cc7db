// Package smoke probes a deployed profile endpoint through API Gateway.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	profilestack "github.com/profilemcp/profile-stack"
)

// ErrorTypeHeader is set by API Gateway on responses it generates itself.
const ErrorTypeHeader = "x-amzn-ErrorType"

// DefaultTimeout bounds a probe when the context has no deadline.
const DefaultTimeout = 10 * time.Second

// ErrGatewayRejected is returned when API Gateway refused the request
// before it reached the function.
var ErrGatewayRejected = errors.New("request rejected by API Gateway")

// Options configures a probe.
type Options struct {
	// URL is the full endpoint to probe. Built with EndpointURL when empty.
	URL    string
	APIID  string
	Region string
	Stage  string
	Path   string
	Method string
	Client *http.Client
	Logger *logrus.Logger
}

// Result is the outcome of one probe.
type Result struct {
	URL        string
	StatusCode int
	ErrorType  string
	Body       string
}

// ToContract converts to the JSON contract type.
func (r Result) ToContract(err error) profilestack.SmokeResult {
	out := profilestack.SmokeResult{
		Success:    err == nil,
		URL:        r.URL,
		StatusCode: r.StatusCode,
		ErrorType:  r.ErrorType,
	}
	if err != nil {
		out.Message = err.Error()
	}
	return out
}

// EndpointURL builds the execute-api URL for a stage and path. The domain
// follows the region's partition the way AWS::URLSuffix does in the
// ServiceEndpoint output: amazonaws.com.cn for aws-cn, amazonaws.com
// elsewhere.
func EndpointURL(apiID, region, stage, path string) string {
	return fmt.Sprintf("https://%s.execute-api.%s.%s/%s/%s",
		apiID, region, urlSuffix(region), stage, strings.TrimPrefix(path, "/"))
}

func urlSuffix(region string) string {
	if strings.HasPrefix(region, "cn-") {
		return "amazonaws.com.cn"
	}
	return "amazonaws.com"
}

// Probe sends a single request. It succeeds when the request reached the
// handler, whatever status the handler returned, and fails when the gateway
// answered 401 or 403 itself or the host could not be reached.
func Probe(ctx context.Context, opts Options) (Result, error) {
	url := opts.URL
	if url == "" {
		if opts.APIID == "" || opts.Region == "" || opts.Stage == "" {
			return Result{}, errors.New("api id, region and stage are required without an explicit URL")
		}
		url = EndpointURL(opts.APIID, opts.Region, opts.Stage, opts.Path)
	}
	result := Result{URL: url}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return result, fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return result, fmt.Errorf("endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	result.StatusCode = resp.StatusCode
	result.ErrorType = resp.Header.Get(ErrorTypeHeader)
	result.Body = string(body)

	if opts.Logger != nil {
		opts.Logger.WithFields(logrus.Fields{
			"url":        url,
			"status":     resp.StatusCode,
			"error_type": result.ErrorType,
		}).Debug("smoke probe response")
	}

	if gatewayRejected(resp.StatusCode, result.ErrorType) {
		return result, fmt.Errorf("%w: %d %s", ErrGatewayRejected, resp.StatusCode, result.ErrorType)
	}
	return result, nil
}

func gatewayRejected(status int, errorType string) bool {
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return false
	}
	return errorType != ""
}
