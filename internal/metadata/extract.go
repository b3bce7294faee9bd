// Package metadata derives the enrichment fields of an audit entry from the
// raw request body and the inbound headers. Every derivation is best-effort:
// a malformed payload degrades the offending field to its zero value and
// never aborts the pipeline.
package metadata

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/codetime/auditproxy/internal/model"
)

// Bodies above this size are not parsed at all; metadata then comes from
// headers only.
const maxParseBytes = 512 * 1024

const (
	shortFieldCap = 64
	longFieldCap  = 2048
)

const maxEpochMillis = 253402300799999 // 9999-12-31T23:59:59.999Z

var (
	ipv4Pattern     = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
	winUserPattern  = regexp.MustCompile(`^[A-Za-z]:\\Users\\([^\\]+)`)
	pathSeparators  = func(r rune) bool { return r == '/' || r == '\\' }
	forwardedOrder  = []string{"x-real-ip", "x-forwarded-for", "x-forwarded"}
	businessStrings = []struct {
		camel, snake string
		limit        int
		assign       func(*model.Metadata, string)
	}{
		{"operationType", "operation_type", shortFieldCap, func(m *model.Metadata, v string) { m.OperationType = v }},
		{"gitBranch", "git_branch", longFieldCap, func(m *model.Metadata, v string) { m.GitBranch = v }},
		{"project", "project", longFieldCap, func(m *model.Metadata, v string) { m.Project = v }},
		{"editor", "editor", shortFieldCap, func(m *model.Metadata, v string) { m.Editor = v }},
		{"platform", "platform", shortFieldCap, func(m *model.Metadata, v string) { m.Platform = v }},
		{"eventType", "event_type", shortFieldCap, func(m *model.Metadata, v string) { m.EventType = v }},
		{"language", "language", shortFieldCap, func(m *model.Metadata, v string) { m.Language = v }},
	}
)

// Collect derives all enrichment fields from the request body text and the
// inbound headers. Header keys are matched case-insensitively.
func Collect(body string, headers map[string]string) model.Metadata {
	h := lowerKeys(headers)
	obj := ParseBodyJSON(body)

	meta := model.Metadata{
		Authorization: h["authorization"],
		ClientIP:      ClientIP(headers),
		UserAgent:     h["user-agent"],
	}

	for _, f := range businessStrings {
		if v, ok := fieldString(obj, f.camel, f.snake, f.limit); ok {
			f.assign(&meta, v)
		}
	}

	if p, ok := fieldString(obj, "absoluteFile", "absolute_filepath", longFieldCap); ok {
		meta.AbsoluteFilepath = p
		meta.WindowsUsername = WindowsUsername(p)
		meta.FileExtension = FileExtension(p)
	}

	if v, ok := lookup(obj, "eventTime", "event_time"); ok {
		meta.EventTime = eventTimeUTC(v)
	}

	return meta
}

// ParseBodyJSON decodes the body as a JSON object. Anything that is not an
// object below the size cap, including malformed text, arrays, scalars and
// null, yields an empty map.
func ParseBodyJSON(body string) map[string]interface{} {
	if body == "" || len(body) >= maxParseBytes {
		return map[string]interface{}{}
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(body), &obj); err != nil || obj == nil {
		return map[string]interface{}{}
	}
	return obj
}

// ClientIP scans X-Real-IP, then each comma-separated token of
// X-Forwarded-For, then X-Forwarded, and returns the first syntactically
// valid IPv4 literal. When none match it falls back to the Host header if
// that itself is an IPv4 literal.
func ClientIP(headers map[string]string) string {
	h := lowerKeys(headers)
	for _, name := range forwardedOrder {
		for _, token := range strings.Split(h[name], ",") {
			candidate := strings.TrimSpace(token)
			if ipv4Pattern.MatchString(candidate) {
				return candidate
			}
		}
	}
	if host := strings.TrimSpace(h["host"]); ipv4Pattern.MatchString(host) {
		return host
	}
	return ""
}

// WindowsUsername extracts the path segment following `<drive>:\Users\` from
// a Windows-style absolute path. POSIX paths yield the empty string.
func WindowsUsername(path string) string {
	m := winUserPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// FileExtension returns the lower-cased extension of the final path segment,
// including the dot, or the empty string when there is none.
func FileExtension(path string) string {
	if path == "" {
		return ""
	}
	segments := strings.FieldsFunc(path, pathSeparators)
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	dot := strings.LastIndexByte(last, '.')
	if dot <= 0 {
		return ""
	}
	return strings.ToLower(last[dot:])
}

func lowerKeys(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[strings.ToLower(k)] = v
	}
	return out
}

func lookup(obj map[string]interface{}, camel, snake string) (interface{}, bool) {
	if v, ok := obj[camel]; ok {
		return v, true
	}
	if v, ok := obj[snake]; ok {
		return v, true
	}
	return nil, false
}

// fieldString reads a body field under either key spelling, accepting
// strings, numbers and booleans coerced to string. Objects and arrays are
// rejected. Values longer than the field cap are truncated.
func fieldString(obj map[string]interface{}, camel, snake string, limit int) (string, bool) {
	v, ok := lookup(obj, camel, snake)
	if !ok {
		return "", false
	}
	s, ok := coerceString(v)
	if !ok {
		return "", false
	}
	if len(s) > limit {
		s = s[:limit]
	}
	return s, true
}

func coerceString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// eventTimeUTC interprets a numeric value, or a numeric string, as
// milliseconds since the Unix epoch. Non-numeric or out-of-range input
// degrades to nil.
func eventTimeUTC(v interface{}) *time.Time {
	var ms float64
	switch t := v.(type) {
	case float64:
		ms = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		ms = parsed
	default:
		return nil
	}
	if math.IsNaN(ms) || ms < 0 || ms > maxEpochMillis {
		return nil
	}
	ts := time.UnixMilli(int64(ms)).UTC()
	return &ts
}
