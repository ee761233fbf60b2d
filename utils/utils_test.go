package utils_test

import (
	"testing"

	"github.com/effective-security/neighborhood/utils"
	"github.com/stretchr/testify/assert"
)

func Test_CleanJSON(t *testing.T) {
	tcases := []struct {
		name string
		in   string
		exp  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"prefixed", "Sure, here you go: {\"a\":1}", `{"a":1}`},
		{"suffixed", `{"a":1} hope that helps`, `{"a":1}`},
		{"array", "result: [1,2,3].", `[1,2,3]`},
		{"no_json", `plain string`, `plain string`},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, string(utils.CleanJSON([]byte(tc.in))))
		})
	}
}

func Test_ToJSON(t *testing.T) {
	val := map[string]any{"a": 1}
	assert.Equal(t, `{"a":1}`, utils.ToJSON(val))
	assert.Equal(t, "{\n\t\"a\": 1\n}", utils.ToJSONIndent(val))
	assert.Equal(t, "{\n\t\"a\": 1\n}", utils.JSONIndent(`{"a":1}`))
}
