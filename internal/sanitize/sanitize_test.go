package sanitize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean passthrough", `{"x": 1}`, `{"x": 1}`},
		{"empty becomes object literal", "", "{}"},
		{"control bytes only becomes object literal", "\x00\x01\x02", "{}"},
		{"keeps tab newline carriage return", "{\t\n\r}", "{\t\n\r}"},
		{"strips nul and high bytes", "{\"x\": 1}\x00\x7f\xff", `{"x": 1}`},
		{"non json text retained", "not json \x01at all", "not json at all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanResultStillParses(t *testing.T) {
	cleaned := Clean("{\"x\": 1}\x00\x01")
	var out map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(cleaned), &out))
	assert.Equal(t, float64(1), out["x"])
}
