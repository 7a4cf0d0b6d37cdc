package image

import "strings"

// Quality enumerates the three generation tiers.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Qualities lists every tier in ascending order.
var Qualities = []Quality{QualityLow, QualityMedium, QualityHigh}

// NormalizeQuality sanitizes free-form user input into a supported tier.
func NormalizeQuality(q string) Quality {
	switch Quality(strings.ToLower(strings.TrimSpace(q))) {
	case QualityLow:
		return QualityLow
	case QualityHigh:
		return QualityHigh
	default:
		return QualityMedium
	}
}

// GeminiImageSize maps a tier onto the OpenRouter image_config image_size
// parameter for Gemini models.
func (q Quality) GeminiImageSize() string {
	if q == QualityHigh {
		return "2K"
	}
	return "1K"
}

// FluxSteps maps a tier onto num_inference_steps for Flux models.
func (q Quality) FluxSteps() int {
	switch q {
	case QualityLow:
		return 15
	case QualityHigh:
		return 50
	default:
		return 28
	}
}

// OpenAIQuality maps a tier onto the OpenAI images API quality parameter.
func (q Quality) OpenAIQuality() string {
	if q == QualityHigh {
		return "hd"
	}
	return "standard"
}

// ReplicateSteps maps a tier onto num_inference_steps for the Replicate
// turbo model.
func (q Quality) ReplicateSteps() int {
	switch q {
	case QualityLow:
		return 4
	case QualityHigh:
		return 16
	default:
		return 8
	}
}
