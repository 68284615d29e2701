package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenRandomID(t *testing.T) {
	id := GenRandomID()
	assert.Len(t, id, 32)

	other := GenRandomID()
	assert.Len(t, other, 32)
}

func TestGenUniqID(t *testing.T) {
	SetupIDWorker(1)

	a := GenUniqID()
	b := GenUniqID()
	assert.NotEqual(t, a, b)
	assert.Greater(t, b, a)
}

func TestParseAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		first  string
	}{
		{"simple", "en-US", "en-US"},
		{"weighted", "zh-CN;q=0.8, en;q=0.9", "en"},
		{"empty parts", ", en", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			langs := ParseAcceptLanguage(tt.header)
			assert.NotEmpty(t, langs)
			assert.Equal(t, tt.first, langs[0].Tag)
		})
	}
}

func TestWhatLang(t *testing.T) {
	assert.Equal(t, "English", WhatLang("The quarterly report shows strong revenue growth across all regions."))
	assert.Equal(t, "Mandarin", WhatLang("季度报告显示所有地区的收入均有强劲增长。"))
}
