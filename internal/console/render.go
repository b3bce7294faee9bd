// Package console prints a human-readable summary of each exchange.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/codetime/auditproxy/internal/model"
)

// previewLimit caps body previews; longer bodies get an explicit truncation
// marker.
const previewLimit = 400

var (
	requestLine  = color.New(color.FgCyan)
	headerLine   = color.New(color.FgMagenta)
	requestBody  = color.New(color.FgBlue)
	responseLine = color.New(color.FgGreen)
	responseBody = color.New(color.FgHiGreen)
)

// Renderer writes colorized exchange summaries. Rendering is best-effort:
// write errors are discarded and never reach the request pipeline.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Render prints the request line, a header summary, capped body previews and
// the response status with its duration.
func (r *Renderer) Render(entry *model.Entry) {
	if entry == nil {
		return
	}

	reqLine := fmt.Sprintf("%s %s", entry.Method, entry.Path)
	if len(entry.Query) > 0 {
		reqLine += "?" + encodeQuery(entry.Query)
	}
	requestLine.Fprintf(r.out, ">> %s\n", reqLine)
	headerLine.Fprintf(r.out, "   Req headers: %s\n", formatHeaders(entry.RequestHeaders))
	if entry.RequestBody != "" {
		requestBody.Fprintf(r.out, "   Req body: %s\n", TruncatePreview(entry.RequestBody))
	}

	responseLine.Fprintf(r.out, "<< %d (%.2fms)\n", entry.ResponseStatus, entry.DurationMS)
	if entry.ResponseBody != "" {
		responseBody.Fprintf(r.out, "   Resp body: %s\n", TruncatePreview(entry.ResponseBody))
	}
}

// TruncatePreview caps the value at the preview limit, appending a marker
// with the count of elided characters.
func TruncatePreview(value string) string {
	if len(value) <= previewLimit {
		return value
	}
	return fmt.Sprintf("%s...(truncated %d chars)", value[:previewLimit], len(value)-previewLimit)
}

func formatHeaders(headers map[string]string) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %s", k, headers[k]))
	}
	return strings.Join(pairs, ", ")
}

func encodeQuery(query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query[k])
	}
	return strings.Join(pairs, "&")
}
