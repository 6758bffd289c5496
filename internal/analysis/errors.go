package analysis

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
)

// classifyUpstreamError maps an API call failure onto the analysis failure
// taxonomy. The SDK surfaces REST failures as *googleapi.Error and gRPC
// failures as status errors; both are handled. A timed-out call counts as
// a generic upstream failure, not a network one.
func classifyUpstreamError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyHTTPStatus(gerr.Code, gerr.Message, err)
	}

	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return classifyGRPCCode(s.Code(), s.Message(), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.CodeAnalysisUpstream, err)
	}

	var nerr net.Error
	var uerr *url.Error
	if errors.As(err, &nerr) || errors.As(err, &uerr) {
		return apperr.New(apperr.CodeAnalysisNetwork, err)
	}

	return apperr.New(apperr.CodeAnalysisUpstream, err)
}

func classifyHTTPStatus(code int, message string, cause error) error {
	switch {
	case code == 401 || code == 403:
		return apperr.New(apperr.CodeAnalysisAuth, cause)
	case code == 429:
		if mentionsQuota(message) {
			return apperr.New(apperr.CodeAnalysisQuota, cause)
		}
		return apperr.New(apperr.CodeAnalysisRateLimited, cause)
	default:
		return apperr.New(apperr.CodeAnalysisUpstream, cause)
	}
}

func classifyGRPCCode(code codes.Code, message string, cause error) error {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return apperr.New(apperr.CodeAnalysisAuth, cause)
	case codes.ResourceExhausted:
		if mentionsQuota(message) {
			return apperr.New(apperr.CodeAnalysisQuota, cause)
		}
		return apperr.New(apperr.CodeAnalysisRateLimited, cause)
	case codes.DeadlineExceeded:
		return apperr.New(apperr.CodeAnalysisUpstream, cause)
	case codes.Unavailable:
		return apperr.New(apperr.CodeAnalysisNetwork, cause)
	default:
		return apperr.New(apperr.CodeAnalysisUpstream, cause)
	}
}

// mentionsQuota distinguishes hard quota exhaustion from transient rate
// limiting; both arrive with the same status code.
func mentionsQuota(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "quota") || strings.Contains(m, "billing") || strings.Contains(m, "credit")
}
