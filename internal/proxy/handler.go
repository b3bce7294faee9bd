package proxy

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codetime/auditproxy/internal/console"
	"github.com/codetime/auditproxy/internal/metadata"
	"github.com/codetime/auditproxy/internal/metrics"
	"github.com/codetime/auditproxy/internal/model"
	"github.com/codetime/auditproxy/internal/sanitize"
	"github.com/codetime/auditproxy/internal/sink"
)

// MaxBodyBytes bounds the inbound request body; larger requests are answered
// 413 before any upstream call.
const MaxBodyBytes = 2 * 1024 * 1024

type Handler struct {
	upstream *url.URL
	base     string
	client   *http.Client
	fanout   *sink.Fanout
	renderer *console.Renderer
	metrics  *metrics.Collector
	logger   zerolog.Logger
}

func NewHandler(upstream string, client *http.Client, fanout *sink.Fanout, renderer *console.Renderer, collector *metrics.Collector, logger zerolog.Logger) (*Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}
	return &Handler{
		upstream: target,
		base:     strings.TrimRight(upstream, "/"),
		client:   client,
		fanout:   fanout,
		renderer: renderer,
		metrics:  collector,
		logger:   logger,
	}, nil
}

// Handle forwards one admitted request to the upstream and runs the audit
// pipeline on the outcome. Only the gate and the upstream call decide the
// caller-visible response; extraction, persistence and rendering run after
// the status is fixed and never change it.
func (h *Handler) Handle(c *fiber.Ctx) error {
	h.metrics.IncActiveRequests()
	defer h.metrics.DecActiveRequests()

	traceID := uuid.New().String()
	method := c.Method()
	path := c.Path()
	body := utils.CopyBytes(c.Body())
	reqHeaders := convertRequestHeaders(c.GetReqHeaders())
	query := copyQuery(c.Queries())

	h.logger.Info().
		Str("trace_id", traceID).
		Str("method", method).
		Str("path", path).
		Msg("Proxying request")

	targetURL := h.buildTargetURL(path, c.Request().URI().QueryString())
	req, err := http.NewRequest(method, targetURL, bytes.NewReader(body))
	if err != nil {
		h.logger.Error().Err(err).Str("trace_id", traceID).Msg("Failed to build upstream request")
		return c.Status(fiber.StatusBadGateway).SendString("{}")
	}
	req.Header = outboundHeaders(reqHeaders)
	req.Host = h.upstream.Host

	// Duration covers the network call only. The request deliberately has
	// no caller-bound context: a client disconnect does not cancel an
	// already-dispatched upstream call.
	start := time.Now()
	resp, err := h.client.Do(req)
	elapsed := time.Since(start)

	var (
		status      int
		respHeaders map[string]string
		rawBody     string
	)
	if err != nil {
		status = translateUpstreamError(err)
		respHeaders = map[string]string{}
		h.logger.Error().
			Err(err).
			Str("trace_id", traceID).
			Int("status", status).
			Msg("Upstream call failed")
	} else {
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			status = fiber.StatusBadGateway
			respHeaders = map[string]string{}
			h.logger.Error().Err(readErr).Str("trace_id", traceID).Msg("Failed to read upstream response")
		} else {
			status = resp.StatusCode
			respHeaders = convertResponseHeaders(resp.Header)
			rawBody = string(raw)
		}
	}
	cleanBody := sanitize.Clean(rawBody)

	requestBody := string(body)
	meta := metadata.Collect(requestBody, reqHeaders)
	entry := model.NewEntry(model.Exchange{
		Method:          method,
		Path:            path,
		Query:           query,
		RequestHeaders:  reqHeaders,
		RequestBody:     requestBody,
		ResponseStatus:  status,
		ResponseHeaders: respHeaders,
		ResponseBody:    cleanBody,
		Duration:        elapsed,
	}, meta)

	h.fanout.Persist(entry)
	h.renderer.Render(entry)
	h.metrics.ObserveRequest(method, strconv.Itoa(status), elapsed)

	h.logger.Info().
		Str("trace_id", traceID).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", elapsed).
		Str("row_hash", entry.RowHash).
		Msg("Response completed")

	c.Status(status)
	for k, v := range filterResponseHeaders(respHeaders) {
		c.Set(k, v)
	}
	return c.SendString(cleanBody)
}

// buildTargetURL joins the upstream base with the inbound path, stripping
// exactly one leading slash so an empty path lands on the upstream root
// without a double slash.
func (h *Handler) buildTargetURL(path string, rawQuery []byte) string {
	target := h.base + "/" + strings.TrimPrefix(path, "/")
	if len(rawQuery) > 0 {
		target += "?" + string(rawQuery)
	}
	return target
}

// translateUpstreamError maps transport failures onto the caller-visible
// status: timeouts become 504, everything else 502.
func translateUpstreamError(err error) int {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusBadGateway
}
