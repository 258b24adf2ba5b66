package recognizer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// embedSize is the side length of the normalized face patch. The embedding
// is the mean-centered, L2-normalized grayscale patch flattened to a vector,
// so cosine distance between embeddings compares face appearance directly.
const embedSize = 32

// EmbeddingDim is the dimensionality of face embeddings.
const EmbeddingDim = embedSize * embedSize

// Embed converts a face image into its embedding vector.
func Embed(img image.Image) []float32 {
	resized := resizeImage(img, embedSize, embedSize)

	vec := make([]float32, 0, EmbeddingDim)
	var sum float64
	for y := range embedSize {
		for x := range embedSize {
			r, g, b, _ := resized.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			vec = append(vec, float32(luma))
			sum += luma
		}
	}

	// Mean-center so global brightness does not dominate the distance.
	mean := float32(sum / float64(len(vec)))
	var norm float64
	for i := range vec {
		vec[i] -= mean
		norm += float64(vec[i]) * float64(vec[i])
	}

	// L2-normalize; a perfectly flat patch stays a zero vector.
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// EmbedBytes decodes an encoded image and embeds it.
func EmbedBytes(data []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return Embed(img), nil
}

// resizeImage scales an image to the specified dimensions.
func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0 // Maximum distance for zero vectors
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
