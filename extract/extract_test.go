package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoted(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"three keywords", `"rust", "ownership", "borrowing"`, []string{"rust", "ownership", "borrowing"}},
		{"with preface", `Here are your keywords: "go" , "channels"`, []string{"go", "channels"}},
		{"trims fragments", `" spaced "`, []string{"spaced"}},
		{"drops empty pairs", `"" "real" "  "`, []string{"real"}},
		{"curly quotes", `“generics” and “interfaces”`, []string{"generics", "interfaces"}},
		{"mixed quotes", `“one” "two"`, []string{"one", "two"}},
		{"unterminated opener", `"closed" "open`, []string{"closed"}},
		{"unterminated curly opener", `“open "closed"`, []string{"closed"}},
		{"spans lines", "\"multi\nline\"", []string{"multi\nline"}},
		{"no quotes", "rust ownership borrowing", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quoted(tt.text))
		})
	}
}

func TestFirstQuoted(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"single query", `"rust ownership model"`, "rust ownership model", true},
		{"takes first", `Try "golang context" or "go cancellation"`, "golang context", true},
		{"empty pair", `"" then "later"`, "", true},
		{"whitespace pair", `"   "`, "", true},
		{"curly", `Search for “badger db iterator”.`, "badger db iterator", true},
		{"no quotes", "golang context cancellation", "", false},
		{"lone quote", `6" pipe`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstQuoted(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
