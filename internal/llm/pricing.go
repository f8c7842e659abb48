package llm

// modelPrice holds dollars per million tokens.
type modelPrice struct {
	prompt     float64
	completion float64
}

var modelPrices = map[string]modelPrice{
	"gpt-4o":                 {2.50, 10.00},
	"gpt-4o-mini":            {0.15, 0.60},
	"gpt-4.1":                {2.00, 8.00},
	"gpt-4.1-mini":           {0.40, 1.60},
	"text-embedding-3-small": {0.02, 0},
	"text-embedding-3-large": {0.13, 0},
}

// estimateCost prices one model call. Unknown models cost zero.
func estimateCost(model string, promptTokens, completionTokens int64) float64 {
	p, ok := modelPrices[model]
	if !ok {
		return 0
	}
	return (float64(promptTokens)*p.prompt + float64(completionTokens)*p.completion) / 1e6
}
