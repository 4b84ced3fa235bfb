package inverted

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
)

// Analyzer splits text into index terms.
type Analyzer interface {
	Analyze(text string) []string
}

// StandardAnalyzer applies Unicode case folding and splits text on every
// rune that is not a letter or a digit.
type StandardAnalyzer struct{}

// A cases.Caser keeps state and must not be shared between goroutines.
var folderPool = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

// Fold applies Unicode case folding.
func Fold(s string) string {
	c := folderPool.Get().(*cases.Caser)
	defer folderPool.Put(c)
	return c.String(s)
}

// Analyze implements Analyzer.
func (StandardAnalyzer) Analyze(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
