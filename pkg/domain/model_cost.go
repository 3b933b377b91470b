package domain

// ModelCost is the OpenAI list price in USD per 1K tokens, or per image.
type ModelCost struct {
	Context   float64
	Generated float64
	Image     float64
}

const ImageModelKey = "dall-e-2-512x512"

func DefaultModelCosts() map[string]ModelCost {
	return map[string]ModelCost{
		"gpt-3.5-turbo": {Context: 0.0005, Generated: 0.0015},
		"gpt-4o-mini":   {Context: 0.00015, Generated: 0.0006},
		"gpt-4o":        {Context: 0.0025, Generated: 0.01},
		ImageModelKey:   {Image: 0.018},
	}
}

// EstimateCost prices one completion. Unknown models report false.
func EstimateCost(model string, promptTokens, completionTokens int) (float64, bool) {
	c, ok := DefaultModelCosts()[model]
	if !ok {
		return 0, false
	}
	return (float64(promptTokens)*c.Context + float64(completionTokens)*c.Generated) / 1000, true
}
