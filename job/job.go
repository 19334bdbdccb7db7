// Package job defines the pluggable user map/reduce contract and two
// reference implementations, WordCount and Indexer. The contract is
// expressed as an interface rather than a compile-time generic parameter,
// since the worker and sequential binaries pick a Job once at build time.
package job

import (
	"sort"
	"strconv"
	"strings"
)

// KV is a single key/value pair, as emitted by a mapper and consumed by a reducer.
type KV struct {
	Key   string
	Value string
}

// Job is the pluggable user code contract. Both methods must be pure with
// respect to the coordinator: side effects to process-local state are
// permitted but never observed by it.
type Job interface {
	// Map parses fname's content into a sequence of key/value pairs.
	Map(fname, content string) []KV
	// Reduce combines all values recorded under key into a single result string.
	Reduce(key string, values []string) string
}

// WordCount emits each lowercased alphabetic word mapped to "1"; Reduce
// returns the count of values as a decimal string.
type WordCount struct{}

// Map implements Job.
func (WordCount) Map(_, content string) []KV {
	var kvs []KV
	for _, w := range splitWords(content) {
		kvs = append(kvs, KV{Key: w, Value: "1"})
	}
	return kvs
}

// Reduce implements Job.
func (WordCount) Reduce(_ string, values []string) string {
	return strconv.Itoa(len(values))
}

// Indexer emits each distinct lowercased word in a file mapped to the file's
// name; Reduce returns "<count> f1,f2,...", fnames sorted ascending.
type Indexer struct{}

// Map implements Job.
func (Indexer) Map(fname, content string) []KV {
	seen := make(map[string]bool)
	var kvs []KV
	for _, w := range splitWords(content) {
		if seen[w] {
			continue
		}
		seen[w] = true
		kvs = append(kvs, KV{Key: w, Value: fname})
	}
	return kvs
}

// Reduce implements Job.
func (Indexer) Reduce(_ string, values []string) string {
	fnames := append([]string(nil), values...)
	sort.Strings(fnames)
	return strconv.Itoa(len(fnames)) + " " + strings.Join(fnames, ",")
}

// splitWords lowercases content and splits it into maximal runs of ASCII
// letters, dropping everything else — mirrors the original C++ reference
// implementation's character-class scan exactly.
func splitWords(content string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	for _, c := range content {
		if isAlpha(c) {
			b.WriteRune(toLower(c))
		} else {
			flush()
		}
	}
	flush()
	return words
}

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func toLower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}
