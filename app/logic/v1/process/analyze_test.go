package process

import (
	"strings"
	"testing"

	"github.com/quillmind-ai/quillmind/pkg/types"
)

func TestAnalyzeCategoryFromKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "technical",
			text: "The api server writes to the database after every deploy. Update the config before the next deploy.",
			want: "technical",
		},
		{
			name: "finance",
			text: "The invoice covers the payment schedule. Each invoice lists the payment terms and the tax rate.",
			want: "finance",
		},
		{
			name: "no signal stays general",
			text: "A quiet walk along the river in the early morning light, nothing else happening at all.",
			want: "general",
		},
		{
			name: "single keyword is not enough",
			text: "We mentioned the budget once and then talked about the weather for an hour.",
			want: "general",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.text, types.FILE_TYPE_PLAIN_TEXT)
			if got.Category != tt.want {
				t.Fatalf("category = %q, want %q", got.Category, tt.want)
			}
		})
	}
}

func TestAnalyzeFileTypeOverridesKeywords(t *testing.T) {
	text := "invoice payment invoice payment tax"

	if got := Analyze(text, types.FILE_TYPE_SOURCE_CODE); got.Category != "technical" {
		t.Fatalf("source code should always be technical, got %q", got.Category)
	}
	if got := Analyze(text, types.FILE_TYPE_SPREADSHEET); got.Category != "data" {
		t.Fatalf("spreadsheets should always be data, got %q", got.Category)
	}
}

func TestAnalyzeTags(t *testing.T) {
	text := strings.Repeat("kubernetes cluster kubernetes deployment cluster ", 3) +
		"there there there should should never never appear once"

	got := Analyze(text, types.FILE_TYPE_PLAIN_TEXT)

	if len(got.Tags) == 0 || len(got.Tags) > maxTags {
		t.Fatalf("tag count out of range: %v", got.Tags)
	}
	if got.Tags[0] != "cluster" && got.Tags[0] != "kubernetes" {
		t.Fatalf("most frequent words should lead, got %v", got.Tags)
	}
	for _, tag := range got.Tags {
		if tag == "there" || tag == "should" {
			t.Fatalf("stopword %q leaked into tags %v", tag, got.Tags)
		}
		if tag == "once" {
			t.Fatalf("single-occurrence word leaked into tags %v", got.Tags)
		}
	}
}

func TestAnalyzeLanguage(t *testing.T) {
	got := Analyze("The quick brown fox jumps over the lazy dog near the riverbank every single morning.", types.FILE_TYPE_PLAIN_TEXT)
	if got.Language != "English" {
		t.Fatalf("language = %q, want English", got.Language)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	text := "api server database deploy config invoice payment budget tax cost"
	first := Analyze(text, types.FILE_TYPE_PLAIN_TEXT)
	for i := 0; i < 10; i++ {
		again := Analyze(text, types.FILE_TYPE_PLAIN_TEXT)
		if again.Category != first.Category {
			t.Fatalf("category flapped between runs: %q vs %q", first.Category, again.Category)
		}
		if strings.Join(again.Tags, ",") != strings.Join(first.Tags, ",") {
			t.Fatalf("tags flapped between runs: %v vs %v", first.Tags, again.Tags)
		}
	}
}
