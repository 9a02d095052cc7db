package smoke

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointURL(t *testing.T) {
	assert.Equal(t,
		"https://abc123.execute-api.us-east-1.amazonaws.com/dev/mcp",
		EndpointURL("abc123", "us-east-1", "dev", "/mcp"))
	assert.Equal(t,
		"https://abc123.execute-api.eu-west-1.amazonaws.com/dev/mcp",
		EndpointURL("abc123", "eu-west-1", "dev", "mcp"))
	assert.Equal(t,
		"https://abc123.execute-api.cn-north-1.amazonaws.com.cn/dev/mcp",
		EndpointURL("abc123", "cn-north-1", "dev", "mcp"))
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		errorType string
		wantErr   bool
	}{
		{"handler ok", http.StatusOK, "", false},
		{"handler error still reached", http.StatusInternalServerError, "", false},
		{"handler forbidden", http.StatusForbidden, "", false},
		{"gateway forbidden", http.StatusForbidden, "AccessDeniedException", true},
		{"gateway unauthorized", http.StatusUnauthorized, "UnauthorizedException", true},
		{"gateway throttled", http.StatusTooManyRequests, "ThrottlingException", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/dev/mcp", r.URL.Path)
				if tt.errorType != "" {
					w.Header().Set(ErrorTypeHeader, tt.errorType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"hi"}`))
			}))
			defer srv.Close()

			result, err := Probe(context.Background(), Options{URL: srv.URL + "/dev/mcp"})
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Equal(t, tt.errorType, result.ErrorType)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrGatewayRejected))
				assert.False(t, result.ToContract(err).Success)
			} else {
				require.NoError(t, err)
				assert.Equal(t, `{"message":"hi"}`, result.Body)
				assert.True(t, result.ToContract(err).Success)
			}
		})
	}
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Probe(context.Background(), Options{URL: url})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestProbe_MissingEndpoint(t *testing.T) {
	_, err := Probe(context.Background(), Options{APIID: "abc"})
	assert.Error(t, err)
}

func TestResult_ToContract(t *testing.T) {
	c := Result{URL: "u", StatusCode: 403, ErrorType: "AccessDeniedException"}.ToContract(ErrGatewayRejected)
	assert.False(t, c.Success)
	assert.Equal(t, "u", c.URL)
	assert.Equal(t, ErrGatewayRejected.Error(), c.Message)
}
