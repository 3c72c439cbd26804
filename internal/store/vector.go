package store

import (
	"strconv"
	"strings"
)

// FormatVector renders an embedding as a pgvector literal, e.g.
// "[0.1,0.2,0.3]".
func FormatVector(values []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// NullableVector renders an embedding for a ::vector parameter, mapping
// absent embeddings to SQL NULL.
func NullableVector(values []float64) any {
	if len(values) == 0 {
		return nil
	}
	return FormatVector(values)
}
