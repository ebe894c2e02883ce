package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "already clean", raw: "DL01AB1234", want: "DL01AB1234"},
		{name: "lowercase", raw: "dl01ab1234", want: "DL01AB1234"},
		{name: "spaces and dashes", raw: "DL 01-AB 1234", want: "DL01AB1234"},
		{name: "punctuation noise", raw: "DL01·AB·1234!", want: "DL01AB1234"},
		{name: "empty", raw: "", want: ""},
		{name: "only noise", raw: "--- ···", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePlate(tt.raw))
		})
	}
}

func TestPlausiblePlate(t *testing.T) {
	assert.True(t, PlausiblePlate("DL01AB1234"))
	assert.True(t, PlausiblePlate("AB12CD3"))
	assert.False(t, PlausiblePlate("AB12CD"))
	assert.False(t, PlausiblePlate(""))
}
