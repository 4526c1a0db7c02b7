package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNumber(t *testing.T) {
	cases := map[string]bool{
		"1001":     true,
		"0":        true,
		"":         false,
		"12 34":    false,
		"-5":       false,
		"12a":      false,
		"３":        false,
		"00012345": true,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsNumber(in), "IsNumber(%q)", in)
	}
}

func TestIsPositive(t *testing.T) {
	assert.True(t, IsPositive("50000"))
	assert.True(t, IsPositive("007"))
	assert.False(t, IsPositive("0"))
	assert.False(t, IsPositive("000"))
	assert.False(t, IsPositive("-1"))
	assert.False(t, IsPositive("abc"))
}

func TestIsAlpha(t *testing.T) {
	assert.True(t, IsAlpha("Ana"))
	assert.True(t, IsAlpha("José"))
	assert.True(t, IsAlpha("Muñoz"))
	assert.False(t, IsAlpha(""))
	assert.False(t, IsAlpha("Ana Maria"))
	assert.False(t, IsAlpha("R2D2"))
	assert.False(t, IsAlpha("o'neil"))
}

func TestYesNo(t *testing.T) {
	for _, in := range []string{"si", "Sí", "S", "yes", " y "} {
		assert.True(t, IsYesNo(in), in)
		assert.True(t, YesNo(in), in)
	}
	for _, in := range []string{"no", "N", " NO"} {
		assert.True(t, IsYesNo(in), in)
		assert.False(t, YesNo(in), in)
	}
	assert.False(t, IsYesNo("maybe"))
	assert.True(t, YesNo("maybe"))
}
