package contentdiff_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/contentdiff"
)

func img(name string) string {
	return fmt.Sprintf(`<img src="https://store.dream-log.example/users/1/%s">`, name)
}

func url(name string) string {
	return fmt.Sprintf("https://store.dream-log.example/users/1/%s", name)
}

func strptr(s string) *string { return &s }

func TestCompare(t *testing.T) {
	e := contentdiff.NewExtractor("dream-log")

	tests := []struct {
		name        string
		old         *string
		new         string
		wantRemoved []string
		wantAdded   []string
		wantKept    []string
	}{
		{
			name:      "create mode registers everything",
			old:       nil,
			new:       img("a.jpg") + img("b.jpg"),
			wantAdded: []string{url("a.jpg"), url("b.jpg")},
		},
		{
			name:        "image removed",
			old:         strptr(img("a.jpg")),
			new:         "<p>text only</p>",
			wantRemoved: []string{url("a.jpg")},
		},
		{
			name:     "image kept",
			old:      strptr(img("a.jpg")),
			new:      img("a.jpg") + "<p>more text</p>",
			wantKept: []string{url("a.jpg")},
		},
		{
			name:        "mixed edit",
			old:         strptr(img("a.jpg") + img("b.jpg")),
			new:         img("b.jpg") + img("c.jpg"),
			wantRemoved: []string{url("a.jpg")},
			wantAdded:   []string{url("c.jpg")},
			wantKept:    []string{url("b.jpg")},
		},
		{
			name: "both empty",
			old:  strptr(""),
			new:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Compare(tt.old, tt.new)
			assert.ElementsMatch(t, tt.wantRemoved, d.Removed)
			assert.ElementsMatch(t, tt.wantAdded, d.Added)
			assert.ElementsMatch(t, tt.wantKept, d.Kept)
		})
	}
}

// Removed and Added are always disjoint, Removed ∪ Kept covers old, and
// Added ∪ Kept covers new.
func TestCompareSetAlgebra(t *testing.T) {
	e := contentdiff.NewExtractor("dream-log")

	pairs := []struct{ old, new string }{
		{img("a.jpg"), img("a.jpg")},
		{img("a.jpg") + img("b.jpg"), img("b.jpg") + img("c.jpg")},
		{"", img("a.jpg")},
		{img("a.jpg"), ""},
		{img("a.jpg") + img("b.jpg") + img("c.jpg"), img("c.jpg")},
	}

	for i, p := range pairs {
		t.Run(fmt.Sprintf("pair_%d", i), func(t *testing.T) {
			d := e.Compare(&p.old, p.new)

			for _, r := range d.Removed {
				assert.NotContains(t, d.Added, r)
				assert.NotContains(t, d.Kept, r)
			}

			oldURLs := e.ExtractList(p.old)
			newURLs := e.ExtractList(p.new)
			assert.ElementsMatch(t, oldURLs, append(append([]string{}, d.Removed...), d.Kept...))
			assert.ElementsMatch(t, newURLs, append(append([]string{}, d.Added...), d.Kept...))
		})
	}
}
