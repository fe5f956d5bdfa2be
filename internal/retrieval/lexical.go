package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// DefaultMaxFeatures caps the lexical vocabulary by corpus term frequency.
const DefaultMaxFeatures = 5000

// #region index
// sparseVec is an L2-normalised TF-IDF row.
type sparseVec struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

type lexicalDoc struct {
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Vector sparseVec `json:"vector"`
}

// LexicalIndex is a TF-IDF term matrix over whole documents (unigrams and
// bigrams, English stop words removed, smooth IDF, L2 rows).
type LexicalIndex struct {
	Vocabulary []string     `json:"vocabulary"`
	IDF        []float64    `json:"idf"`
	Docs       []lexicalDoc `json:"docs"`

	terms map[string]int
}

// #endregion index

// #region build
// BuildLexical fits the vectoriser on docs and indexes them.
func BuildLexical(docs []Document, maxFeatures int) (*LexicalIndex, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("build lexical index: no documents")
	}
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}

	counts := make([]map[string]int, len(docs))
	total := make(map[string]int)
	for i, d := range docs {
		c := make(map[string]int)
		for _, t := range analyze(d.Text) {
			c[t]++
			total[t]++
		}
		counts[i] = c
	}

	vocab := make([]string, 0, len(total))
	for t := range total {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)
	if len(vocab) > maxFeatures {
		sort.SliceStable(vocab, func(i, j int) bool { return total[vocab[i]] > total[vocab[j]] })
		vocab = vocab[:maxFeatures]
		sort.Strings(vocab)
	}

	idx := &LexicalIndex{Vocabulary: vocab}
	idx.reindex()

	n := float64(len(docs))
	df := make([]int, len(vocab))
	for _, c := range counts {
		for t := range c {
			if j, ok := idx.terms[t]; ok {
				df[j]++
			}
		}
	}
	idx.IDF = make([]float64, len(vocab))
	for j := range vocab {
		idx.IDF[j] = math.Log((1+n)/(1+float64(df[j]))) + 1
	}

	for i, d := range docs {
		idx.Docs = append(idx.Docs, lexicalDoc{
			Source: d.Source,
			Text:   d.Text,
			Vector: idx.weigh(counts[i]),
		})
	}
	return idx, nil
}

func (idx *LexicalIndex) reindex() {
	idx.terms = make(map[string]int, len(idx.Vocabulary))
	for j, t := range idx.Vocabulary {
		idx.terms[t] = j
	}
}

// weigh turns raw term counts into an L2-normalised TF-IDF vector.
func (idx *LexicalIndex) weigh(counts map[string]int) sparseVec {
	var v sparseVec
	for t := range counts {
		j, ok := idx.terms[t]
		if !ok {
			continue
		}
		v.Indices = append(v.Indices, j)
	}
	sort.Ints(v.Indices)
	v.Values = make([]float64, len(v.Indices))
	var norm float64
	for k, j := range v.Indices {
		w := float64(counts[idx.Vocabulary[j]]) * idx.IDF[j]
		v.Values[k] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range v.Values {
			v.Values[k] /= norm
		}
	}
	return v
}

// Transform vectorises text with the fitted vocabulary.
func (idx *LexicalIndex) Transform(text string) sparseVec {
	c := make(map[string]int)
	for _, t := range analyze(text) {
		c[t]++
	}
	return idx.weigh(c)
}

// #endregion build

// #region persist
// Save writes the index as JSON.
func (idx *LexicalIndex) Save(path string) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal lexical index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write lexical index: %w", err)
	}
	return nil
}

// LoadLexical reads an index written by Save.
func LoadLexical(path string) (*LexicalIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexical index: %w", err)
	}
	var idx LexicalIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode lexical index %s: %w", path, err)
	}
	if err := idx.validate(); err != nil {
		return nil, fmt.Errorf("lexical index %s: %w", path, err)
	}
	idx.reindex()
	return &idx, nil
}

// validate checks that every document vector indexes into the vocabulary.
func (idx *LexicalIndex) validate() error {
	if len(idx.IDF) != len(idx.Vocabulary) {
		return fmt.Errorf("idf/vocabulary length mismatch")
	}
	for i, d := range idx.Docs {
		v := d.Vector
		if len(v.Indices) != len(v.Values) {
			return fmt.Errorf("doc %d: %d indices, %d values", i, len(v.Indices), len(v.Values))
		}
		for _, j := range v.Indices {
			if j < 0 || j >= len(idx.Vocabulary) {
				return fmt.Errorf("doc %d: term index %d outside vocabulary of %d", i, j, len(idx.Vocabulary))
			}
		}
	}
	return nil
}

// #endregion persist

// #region search
// Backend implements Strategy.
func (idx *LexicalIndex) Backend() string { return BackendLexical }

// Search ranks documents by cosine similarity to query and returns the top k
// with a positive score.
func (idx *LexicalIndex) Search(_ context.Context, query string, k int) ([]Hit, error) {
	q := idx.Transform(query)
	qv := make(map[int]float64, len(q.Indices))
	for n, j := range q.Indices {
		qv[j] = q.Values[n]
	}

	type scored struct {
		doc   int
		score float64
	}
	all := make([]scored, 0, len(idx.Docs))
	for i, d := range idx.Docs {
		var dot float64
		for n, j := range d.Vector.Indices {
			dot += qv[j] * d.Vector.Values[n]
		}
		all = append(all, scored{i, dot})
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].score > all[b].score })

	hits := []Hit{}
	for _, s := range all {
		if len(hits) >= k || s.score <= 0 {
			break
		}
		d := idx.Docs[s.doc]
		hits = append(hits, Hit{Score: math.Min(s.score, 1), Source: d.Source, Excerpt: d.Text})
	}
	return hits, nil
}

// #endregion search
