package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPlate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"compact form", "AB12CD3456", "AB12CD3456", true},
		{"spaced form", "AB 12 CD 3456", "AB12CD3456", true},
		{"embedded in ocr noise", "IND :: AB12CD3456 //", "AB12CD3456", true},
		{"lowercase ocr output", "ab 12 cd 3456", "AB12CD3456", true},
		{"first of multiple matches", "AB12CD3456 XY98ZW7654", "AB12CD3456", true},
		{"wrong digit counts", "AB1CD345", "", false},
		{"empty text", "", "", false},
		{"garbage", "%%%###", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plate, ok := ExtractPlate(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, plate)
		})
	}
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "AB12CD3456", NormalizePlate("ab 12-cd.3456"))
	assert.Equal(t, "AB12CD3456", NormalizePlate("AB12CD3456"))
	assert.Equal(t, "", NormalizePlate(" -. "))
}
