package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", String("gpt-4.1-mini"), "gpt-4.1-mini"},
		{"string from int", String(5), ""},
		{"string nil", String(nil), ""},
		{"int", Int(5), 5},
		{"int from int64", Int(int64(500)), 500},
		{"int from int32", Int(int32(7)), 7},
		{"int from whole float", Int(3.0), 3},
		{"int from fraction", Int(0.25), 0},
		{"int from string", Int("5"), 0},
		{"float", Float(0.2), 0.2},
		{"float from float32", Float(float32(0.5)), 0.5},
		{"float widens int", Float(8), 8.0},
		{"float widens int64", Float(int64(20)), 20.0},
		{"float from bool", Float(true), 0.0},
		{"bool", Bool(true), true},
		{"bool from string", Bool("true"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
