package melvin

// Modality is the closed set of perception channels the cross-modal
// binding table indexes (§3.1).
type Modality uint8

const (
	ModalityText Modality = iota
	ModalityVision
	ModalityAudio
	ModalityMotor
)

func (m Modality) String() string {
	switch m {
	case ModalityText:
		return "text"
	case ModalityVision:
		return "vision"
	case ModalityAudio:
		return "audio"
	case ModalityMotor:
		return "motor"
	default:
		return "unknown"
	}
}

// EmbeddingDim is the dimensionality of the shared cross-modal embedding
// space (§4.H): "a shared, deterministic 256-D embedding space."
const EmbeddingDim = 256

// CrossModalBinding maps a concept node to a perception key in some
// modality with a confidence weight (§3.1).
type CrossModalBinding struct {
	ConceptID NodeID   `json:"concept_id"`
	Modality  Modality `json:"modality"`
	Key       string   `json:"key"`
	Weight    float64  `json:"weight"`
	Source    string   `json:"source"`
}
