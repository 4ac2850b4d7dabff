package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/provider/musicgen"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode FailureCode
	}{
		{"nil", nil, FailUnknown},
		{"unauthorized", domain.ErrUnauthorized, FailUnauthenticated},
		{"not configured", musicgen.ErrNotConfigured, FailNotConfigured},
		{"wrapped not configured", fmt.Errorf("submit: %w", domain.ErrNotConfigured), FailNotConfigured},
		{"deadline", context.DeadlineExceeded, FailTimeout},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), FailTimeout},
		{"net timeout", &net.DNSError{IsTimeout: true}, FailTimeout},
		{"net failure", &net.DNSError{}, FailNetwork},
		{"unknown", errors.New("boom"), FailUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantCode, Classify(tc.err).Code)
		})
	}
}

func TestClassifyUpstreamError(t *testing.T) {
	got := Classify(fmt.Errorf("submit: %w", &musicgen.UpstreamError{HTTPStatus: 402, Detail: "quota exceeded"}))
	require.Equal(t, FailUpstreamCall, got.Code)
	assert.Equal(t, 402, got.HTTPStatus)
	assert.Equal(t, "quota exceeded", got.Reason)
}

func TestClassifyUpstreamErrorWithoutDetail(t *testing.T) {
	got := Classify(&musicgen.UpstreamError{HTTPStatus: 503})
	require.Equal(t, FailUpstreamCall, got.Code)
	assert.Equal(t, "generation backend returned HTTP 503", got.Reason)
}

func TestClassifyDecodeError(t *testing.T) {
	got := Classify(&musicgen.DecodeError{Raw: "<html>oops</html>", Err: errors.New("invalid character")})
	require.Equal(t, FailMalformedResponse, got.Code)
	assert.Equal(t, "<html>oops</html>", got.Raw)
}

func TestClassifyKeepsRawForUnknown(t *testing.T) {
	got := Classify(errors.New("boom"))
	assert.Equal(t, "boom", got.Raw)
}
