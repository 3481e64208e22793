package originality

import (
	"math"
	"testing"
)

func TestVectorize_IdenticalTexts(t *testing.T) {
	v := NewVectorizer(5000)
	text := "The quick brown fox jumps over the lazy dog."

	vectors := v.Vectorize([]string{text, text})
	if vectors == nil {
		t.Fatal("Expected vectors, got nil")
	}

	sim := Cosine(vectors[0], vectors[1])
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("Expected similarity 1.0 for identical texts, got %f", sim)
	}
}

func TestVectorize_DisjointTexts(t *testing.T) {
	v := NewVectorizer(5000)

	vectors := v.Vectorize([]string{
		"Unique sentence about octopi and jazz.",
		"Completely unrelated text about tax law.",
	})
	if vectors == nil {
		t.Fatal("Expected vectors, got nil")
	}

	sim := Cosine(vectors[0], vectors[1])
	if sim != 0 {
		t.Errorf("Expected similarity 0 for disjoint vocabularies, got %f", sim)
	}
}

func TestVectorize_EmptyVocabulary(t *testing.T) {
	v := NewVectorizer(5000)

	// Only stopwords and single-character tokens
	vectors := v.Vectorize([]string{"the and of a", "is was to x"})
	if vectors != nil {
		t.Errorf("Expected nil vectors for empty vocabulary, got %d vectors", len(vectors))
	}
}

func TestVectorize_VocabCap(t *testing.T) {
	v := NewVectorizer(2)

	// "alpha" and "beta" dominate by frequency; "gamma" must be cut
	vectors := v.Vectorize([]string{
		"alpha alpha alpha beta beta gamma",
		"alpha beta",
	})
	if vectors == nil {
		t.Fatal("Expected vectors, got nil")
	}

	for i, vec := range vectors {
		if len(vec) > 2 {
			t.Errorf("Vector %d has %d terms, vocabulary cap is 2", i, len(vec))
		}
	}
}

func TestVectorize_Deterministic(t *testing.T) {
	texts := []string{
		"research pipelines synthesize cited summaries",
		"summaries cite research sources",
		"pipelines process documents",
	}

	a := NewVectorizer(2).Vectorize(texts)
	b := NewVectorizer(2).Vectorize(texts)

	for i := range a {
		if len(a[i]) != len(b[i]) {
			t.Fatalf("Vector %d differs in size between runs", i)
		}
		for idx, w := range a[i] {
			if b[i][idx] != w {
				t.Errorf("Vector %d term %d differs between runs: %f vs %f", i, idx, w, b[i][idx])
			}
		}
	}
}

func TestVectorize_Normalized(t *testing.T) {
	v := NewVectorizer(0)

	vectors := v.Vectorize([]string{"quantum computing applications in modern cryptography"})
	if vectors == nil {
		t.Fatal("Expected vectors, got nil")
	}

	var norm float64
	for _, w := range vectors[0] {
		norm += w * w
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-9 {
		t.Errorf("Expected unit-length vector, got norm %f", math.Sqrt(norm))
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lowercases and splits", "Quantum Computing!", []string{"quantum", "computing"}},
		{"drops stopwords", "the state of the art", []string{"state", "art"}},
		{"drops short tokens", "a I x fox", []string{"fox"}},
		{"empty input", "", nil},
		{"punctuation only", "... --- !!!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}
