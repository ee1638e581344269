package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/livability-cli/pkg/anthropic"
)

// ErrNoSummarizer is returned by Summarize when no LLM client is configured.
var ErrNoSummarizer = eris.New("pipeline: no summarizer configured")

const summaryPrompt = "Analyze this location data and provide insights about the area's livability, air quality, and population density. Be concise and informative:\n\n"

// summaryInput is the subset of a report shown to the model.
type summaryInput struct {
	Point       any `json:"point"`
	Density     any `json:"populationDensity"`
	Noise       any `json:"noisePollution"`
	AirQuality  any `json:"airQuality"`
	Grocery     any `json:"groceryStore,omitempty"`
	Location    any `json:"locationDetails,omitempty"`
	Frustration any `json:"frustration"`
}

// SummaryPrompt renders the prompt for r.
func SummaryPrompt(r *Report) (string, error) {
	in := summaryInput{
		Point:       r.Point,
		Density:     r.Density,
		Noise:       r.Noise,
		AirQuality:  r.AirQuality,
		Frustration: r.Frustration,
	}
	if r.Grocery != nil {
		in.Grocery = r.Grocery
	}
	if r.Location != nil {
		in.Location = r.Location
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal summary input")
	}
	return summaryPrompt + string(data), nil
}

// Summarize asks the configured LLM for a short description of r.
func (p *Pipeline) Summarize(ctx context.Context, r *Report) (string, error) {
	if p.llm == nil {
		return "", ErrNoSummarizer
	}

	prompt, err := SummaryPrompt(r)
	if err != nil {
		return "", err
	}

	resp, err := p.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.llmModel,
		MaxTokens: p.llmTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: summarize")
	}
	resp.Usage.LogUsage(p.llmModel, "summary")

	return strings.TrimSpace(resp.Text()), nil
}
