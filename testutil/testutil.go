package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/hupe1980/docgo/document"
)

// Vocabulary is the word list used for generated text, most frequent first.
var Vocabulary = []string{
	"the", "data", "store", "query", "index", "record", "field", "value",
	"search", "term", "phrase", "segment", "commit", "replace", "delete",
	"collection", "catalog", "export", "journal", "bitmap", "posting",
	"score", "token", "prefix", "manifest", "codec", "pristine", "narrow",
	"berlin", "hamburg", "munich", "cologne", "vienna", "zurich",
}

// Cities are the values of the generated "city" field, most frequent first.
var Cities = []string{"Berlin", "Hamburg", "Munich", "Cologne", "Vienna", "Zurich", "Oslo", "Lisbon"}

// Tags are the values of the generated "tags" field.
var Tags = []string{"admin", "ops", "dev", "sales", "support", "finance"}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) is proportional to 1/k^s; s=1.0 gives standard Zipf.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked samples by inverse transform (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// Word returns a Zipf-distributed word from Vocabulary.
func (r *RNG) Word() string {
	return Vocabulary[r.Zipf(len(Vocabulary), 1.0)]
}

// Sentence returns n space-separated words.
func (r *RNG) Sentence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = r.Word()
	}
	return strings.Join(words, " ")
}

// Document returns a document with id, name, city, age, active, tags and
// body fields. Roughly one in ten documents has no tags.
func (r *RNG) Document(id string) document.Document {
	doc := document.Document{
		"id":     document.String(id),
		"name":   document.String(fmt.Sprintf("user %s", id)),
		"city":   document.String(Cities[r.Zipf(len(Cities), 1.2)]),
		"age":    document.Int(int64(18 + r.Intn(60))),
		"active": document.Bool(r.Intn(2) == 0),
		"body":   document.String(r.Sentence(8 + r.Intn(16))),
	}
	if r.Intn(10) != 0 {
		tags := []string{Tags[r.Intn(len(Tags))]}
		if r.Intn(3) == 0 {
			tags = append(tags, Tags[r.Intn(len(Tags))])
		}
		doc["tags"] = document.Strings(tags...)
	}
	return doc
}

// Documents returns n documents with ids "doc-000000", "doc-000001", ...
func (r *RNG) Documents(n int) []document.Document {
	docs := make([]document.Document, n)
	for i := range docs {
		docs[i] = r.Document(DocID(i))
	}
	return docs
}

// DocID returns the id of the i-th generated document.
func DocID(i int) string {
	return fmt.Sprintf("doc-%06d", i)
}
