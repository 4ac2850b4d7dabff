package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"

	"server/internal/domain"
	"server/internal/provider/musicgen"
)

// FailureCode is the closed taxonomy every raw transport or upstream error
// is normalized into. Downstream code renders user-facing messages from a
// Classified value without re-parsing transport objects.
type FailureCode string

const (
	FailUnauthenticated   FailureCode = "unauthenticated"
	FailNotConfigured     FailureCode = "not_configured"
	FailUpstreamCall      FailureCode = "upstream_call_failed"
	FailMalformedResponse FailureCode = "malformed_upstream_response"
	FailNetwork           FailureCode = "network_failure"
	FailTimeout           FailureCode = "timeout"
	FailUnknown           FailureCode = "unknown"
)

// Classified carries the normalized view of a failure.
type Classified struct {
	Code       FailureCode
	HTTPStatus int
	Reason     string
	Raw        string
}

// Classify maps heterogeneous errors into the closed taxonomy.
func Classify(err error) Classified {
	if err == nil {
		return Classified{Code: FailUnknown, Reason: "unknown failure"}
	}

	if errors.Is(err, domain.ErrUnauthorized) {
		return Classified{Code: FailUnauthenticated, Reason: "caller is not authenticated"}
	}
	if errors.Is(err, domain.ErrNotConfigured) || errors.Is(err, musicgen.ErrNotConfigured) {
		return Classified{Code: FailNotConfigured, Reason: "generation backend is not configured"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Classified{Code: FailTimeout, Reason: "request to generation backend timed out"}
	}

	var upstream *musicgen.UpstreamError
	if errors.As(err, &upstream) {
		reason := upstream.Detail
		if reason == "" {
			reason = fmt.Sprintf("generation backend returned HTTP %d", upstream.HTTPStatus)
		}
		return Classified{Code: FailUpstreamCall, HTTPStatus: upstream.HTTPStatus, Reason: reason}
	}

	var decode *musicgen.DecodeError
	if errors.As(err, &decode) {
		return Classified{
			Code:   FailMalformedResponse,
			Reason: "generation backend returned an unreadable response",
			Raw:    decode.Raw,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Classified{Code: FailTimeout, Reason: "request to generation backend timed out"}
		}
		return Classified{Code: FailNetwork, Reason: "could not reach generation backend"}
	}

	return Classified{Code: FailUnknown, Reason: "unexpected failure", Raw: err.Error()}
}
