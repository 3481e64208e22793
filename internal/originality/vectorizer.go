package originality

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Vector is a sparse L2-normalized TF-IDF vector over the fitted vocabulary
type Vector map[int]float64

// Vectorizer builds a bag-of-words TF-IDF vector space over a batch of
// texts. The vocabulary is capped: when the corpus yields more distinct
// terms than the cap, the most frequent terms win, ties broken
// lexicographically so the fit is deterministic for fixed inputs.
type Vectorizer struct {
	vocabCap int
}

// NewVectorizer creates a vectorizer with the given vocabulary cap.
// A cap of zero or less means unlimited.
func NewVectorizer(vocabCap int) *Vectorizer {
	return &Vectorizer{vocabCap: vocabCap}
}

// Vectorize fits the vocabulary on the given texts and returns one vector
// per text, in input order. Returns nil when the corpus produces an empty
// vocabulary (all tokens stopwords or too short); callers treat that as
// zero similarity everywhere.
func (v *Vectorizer) Vectorize(texts []string) []Vector {
	tokenized := make([][]string, len(texts))
	for i, t := range texts {
		tokenized[i] = tokenize(t)
	}

	vocab := v.buildVocab(tokenized)
	if len(vocab) == 0 {
		return nil
	}

	// Document frequency per term index
	df := make([]int, len(vocab))
	counts := make([]map[int]int, len(tokenized))
	for i, tokens := range tokenized {
		tf := make(map[int]int)
		for _, tok := range tokens {
			if idx, ok := vocab[tok]; ok {
				tf[idx]++
			}
		}
		counts[i] = tf
		for idx := range tf {
			df[idx]++
		}
	}

	// Smoothed inverse document frequency
	n := float64(len(tokenized))
	idf := make([]float64, len(vocab))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	vectors := make([]Vector, len(tokenized))
	for i, tf := range counts {
		vec := make(Vector, len(tf))
		var norm float64
		for idx, c := range tf {
			w := float64(c) * idf[idx]
			vec[idx] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range vec {
				vec[idx] /= norm
			}
		}
		vectors[i] = vec
	}

	return vectors
}

// buildVocab selects the vocabulary from tokenized texts, applying the cap
func (v *Vectorizer) buildVocab(tokenized [][]string) map[string]int {
	freq := make(map[string]int)
	for _, tokens := range tokenized {
		for _, tok := range tokens {
			freq[tok]++
		}
	}

	if len(freq) == 0 {
		return nil
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if v.vocabCap > 0 && len(terms) > v.vocabCap {
		terms = terms[:v.vocabCap]
	}

	// Index terms alphabetically so vector indices are stable across runs
	sort.Strings(terms)
	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}
	return vocab
}

// Cosine returns the cosine similarity of two normalized vectors.
// Since vectors are unit length, this is their dot product.
func Cosine(a, b Vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for idx, w := range a {
		if x, ok := b[idx]; ok {
			dot += w * x
		}
	}
	// Guard against rounding drift above 1.0
	if dot > 1 {
		dot = 1
	}
	return dot
}

// tokenize lowercases the text and splits it into word tokens, dropping
// single-character tokens and stopwords
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if isStopword(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
