package suggest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// NgramEmbedder hashes character trigrams into a fixed-size vector. It needs
// no network and finds texts that share words or word parts.
type NgramEmbedder struct {
	dimensions int
}

func NewNgramEmbedder(dimensions int) *NgramEmbedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &NgramEmbedder{dimensions: dimensions}
}

func (e *NgramEmbedder) Dimensions() int { return e.dimensions }

func (e *NgramEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *NgramEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimensions)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		runes := []rune(" " + word + " ")
		for i := 0; i+3 <= len(runes); i++ {
			h := fnv.New32a()
			h.Write([]byte(string(runes[i : i+3])))
			v[h.Sum32()%uint32(e.dimensions)]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// Cosine returns the cosine similarity of two vectors of equal length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
