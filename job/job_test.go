package job

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordCountMap(t *testing.T) {
	wc := WordCount{}
	kvs := wc.Map("file0", "aaa bbb bbb ccc ccc ccc")
	var words []string
	for _, kv := range kvs {
		assert.Equal(t, "1", kv.Value)
		words = append(words, kv.Key)
	}
	assert.Equal(t, []string{"aaa", "bbb", "bbb", "ccc", "ccc", "ccc"}, words)
}

func TestWordCountReduce(t *testing.T) {
	wc := WordCount{}
	assert.Equal(t, "3", wc.Reduce("bbb", []string{"1", "1", "1"}))
	assert.Equal(t, "0", wc.Reduce("x", nil))
}

func TestWordCountCaseAndPunctuation(t *testing.T) {
	wc := WordCount{}
	kvs := wc.Map("f", "Hello, World! hello...")
	var words []string
	for _, kv := range kvs {
		words = append(words, kv.Key)
	}
	assert.Equal(t, []string{"hello", "world", "hello"}, words)
}

func TestIndexerMapDedupesWithinFile(t *testing.T) {
	ix := Indexer{}
	kvs := ix.Map("file1", "aaa aab aaa abb aaa")
	var words []string
	for _, kv := range kvs {
		assert.Equal(t, "file1", kv.Value)
		words = append(words, kv.Key)
	}
	sort.Strings(words)
	assert.Equal(t, []string{"aaa", "aab", "abb"}, words)
}

func TestIndexerReduceSortsAndJoins(t *testing.T) {
	ix := Indexer{}
	got := ix.Reduce("aaa", []string{"file6", "file0", "file1"})
	assert.Equal(t, "3 file0,file1,file6", got)
}

func TestChaosPanics(t *testing.T) {
	c := NewChaos(WordCount{}, 1)
	c.PanicProb = 1
	assert.Panics(t, func() {
		c.Map("f", "content")
	})
}

func TestChaosPassesThroughWithoutDisruption(t *testing.T) {
	c := NewChaos(WordCount{}, 1)
	kvs := c.Map("f", "aaa bbb")
	assert.Len(t, kvs, 2)
}
