// Package crossmodal implements §4.H: a shared deterministic 256-D
// embedding space across perception modalities, per-modality top-k
// cosine indices, a bidirectional concept<->key bindings table, and
// context/temporal gated grounding.
package crossmodal

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/thebtf/melvin/pkg/melvin"
)

// modalitySalt keys blake2b's MAC mode per modality so the same raw key
// string projects to a different point in the shared space depending on
// which channel it arrived on (§4.H "hashing each modality key with a
// per-modality salt").
var modalitySalt = map[melvin.Modality][]byte{
	melvin.ModalityText:   []byte("melvin/crossmodal/text/v1"),
	melvin.ModalityVision: []byte("melvin/crossmodal/vision/v1"),
	melvin.ModalityAudio:  []byte("melvin/crossmodal/audio/v1"),
	melvin.ModalityMotor:  []byte("melvin/crossmodal/motor/v1"),
}

// Vector is the shared cross-modal embedding space's point type.
type Vector = [melvin.EmbeddingDim]float32

// Embed deterministically projects (modality, key) into a unit vector in
// the shared space: given the same key and salt the same vector always
// results (§8 P-invariant, §4.H). The projection counter-mode-expands a
// keyed blake2b MAC into Box-Muller gaussian pairs, which approximate a
// low-discrepancy projection onto the sphere without needing a learned
// or stored random matrix.
func Embed(modality melvin.Modality, key string) Vector {
	salt, ok := modalitySalt[modality]
	if !ok {
		salt = modalitySalt[melvin.ModalityText]
	}

	var out Vector
	var counter uint32
	for i := 0; i < melvin.EmbeddingDim; counter++ {
		h, err := blake2b.New256(salt)
		if err != nil {
			// blake2b.New256 only fails for an over-long key; salts are
			// fixed and well under the 64-byte limit.
			panic(err)
		}
		var ctrBytes [4]byte
		binary.LittleEndian.PutUint32(ctrBytes[:], counter)
		h.Write(ctrBytes[:])
		h.Write([]byte(key))
		digest := h.Sum(nil)

		for b := 0; b+8 <= len(digest) && i < melvin.EmbeddingDim; b += 8 {
			u1 := uniformFromBits(binary.LittleEndian.Uint32(digest[b : b+4]))
			u2 := uniformFromBits(binary.LittleEndian.Uint32(digest[b+4 : b+8]))
			g1, g2 := boxMuller(u1, u2)
			out[i] = float32(g1)
			i++
			if i < melvin.EmbeddingDim {
				out[i] = float32(g2)
				i++
			}
		}
	}
	Normalize(&out)
	return out
}

// uniformFromBits maps a uint32 to a uniform value in (0, 1], avoiding
// exactly 0 so boxMuller's log never sees a zero argument.
func uniformFromBits(bits uint32) float64 {
	return (float64(bits) + 1) / (float64(math.MaxUint32) + 2)
}

// boxMuller transforms two independent uniforms in (0,1] into two
// independent standard-normal samples.
func boxMuller(u1, u2 float64) (float64, float64) {
	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2
	return r * math.Cos(theta), r * math.Sin(theta)
}

// Normalize L2-normalizes v in place. A zero vector is left unchanged.
func Normalize(v *Vector) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// CosineSimilarity assumes both vectors are already unit-normalized, in
// which case cosine similarity reduces to the dot product.
func CosineSimilarity(a, b Vector) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
