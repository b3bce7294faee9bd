package proxy

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2/utils"
)

// Response headers that must not be relayed to the caller. The body is
// re-sanitized before relay, so encoding and connection management headers
// from the upstream no longer apply.
var strippedResponseHeaders = map[string]struct{}{
	"content-encoding":  {},
	"transfer-encoding": {},
	"connection":        {},
	"keep-alive":        {},
}

// convertRequestHeaders flattens fiber's multi-value headers into a single
// value per key. Keys and values are copied out of fasthttp's reusable
// buffers because the entry outlives the handler.
func convertRequestHeaders(src map[string][]string) map[string]string {
	result := make(map[string]string, len(src))
	for k, v := range src {
		if len(v) > 0 {
			result[utils.CopyString(k)] = utils.CopyString(v[0])
		}
	}
	return result
}

func convertResponseHeaders(src http.Header) map[string]string {
	result := make(map[string]string, len(src))
	for k, v := range src {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}

// outboundHeaders builds the header set for the upstream call. The inbound
// Host header is dropped entirely; the Host rewrite happens on the request
// itself. Accept-Encoding is left to the transport so the response body
// arrives decoded.
func outboundHeaders(src map[string]string) http.Header {
	out := make(http.Header, len(src))
	for k, v := range src {
		switch strings.ToLower(k) {
		case "host", "accept-encoding":
			continue
		}
		out.Set(k, v)
	}
	return out
}

// filterResponseHeaders removes the headers in strippedResponseHeaders
// before relay.
func filterResponseHeaders(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		if _, stripped := strippedResponseHeaders[strings.ToLower(k)]; stripped {
			continue
		}
		out[k] = v
	}
	return out
}

func copyQuery(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[utils.CopyString(k)] = utils.CopyString(v)
	}
	return out
}
