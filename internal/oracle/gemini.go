package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/models"
	"copy-trade-bot-go/internal/restclient"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	insufficientData = "Insufficient data."

	promptTemplate = `You are a Copy Trading AI. A top trader named "%s" (Win Rate: %s%%) just made a move on this market.

Market: "%s"
Current Odds for YES: %s

Should we COPY this trade?

Decide: COPY_BUY_YES, COPY_BUY_NO, COPY_SELL_YES, or COPY_SELL_NO.
Reasoning: Explain why we are mirroring this specific trader (max 10 words).
Amount: Suggest trade size ($10-$100).
`

	// decisionSchema checks the model's answer. Missing fields are filled
	// with defaults afterwards, so nothing is required here.
	decisionSchema = `{
  "type": "object",
  "properties": {
    "decision": {"type": "string", "enum": ["COPY_BUY_YES", "COPY_BUY_NO", "COPY_SELL_YES", "COPY_SELL_NO", "HOLD"]},
    "reasoning": {"type": "string"},
    "amount": {"type": "number"}
  }
}`
)

// responseSchema is sent with the request so the model answers in JSON.
var responseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"decision": map[string]any{
			"type": "STRING",
			"enum": []string{"COPY_BUY_YES", "COPY_BUY_NO", "COPY_SELL_YES", "COPY_SELL_NO"},
		},
		"reasoning": map[string]any{"type": "STRING"},
		"amount":    map[string]any{"type": "NUMBER"},
	},
	"required": []string{"decision", "reasoning", "amount"},
}

// GeminiDecider asks a Gemini model through the generateContent endpoint.
type GeminiDecider struct {
	client       *restclient.Client
	apiKey       string
	model        string
	maxReasoning int
	schema       *jsonschema.Schema
	logger       *zap.Logger
}

var _ Decider = (*GeminiDecider)(nil)

// NewGeminiDecider creates a remote decider. Reasoning longer than
// maxReasoning runes is cut.
func NewGeminiDecider(cfg *config.Oracle, maxReasoning int, logger *zap.Logger) (*GeminiDecider, error) {
	schema, err := compileSchema(decisionSchema)
	if err != nil {
		return nil, err
	}
	client := restclient.New(restclient.Options{
		BaseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		Timeout:        cfg.Timeout,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxRetries:     cfg.MaxRetries,
	}, logger)

	return &GeminiDecider{
		client:       client,
		apiKey:       cfg.ApiKey,
		model:        cfg.Model,
		maxReasoning: maxReasoning,
		schema:       schema,
		logger:       logger,
	}, nil
}

func compileSchema(raw string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("decision.json", strings.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("could not add decision schema: %w", err)
	}
	return compiler.Compile("decision.json")
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content      `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig"`
}

// Decide sends the move to the model and parses its answer.
func (g *GeminiDecider) Decide(ctx context.Context, market models.Market, trader *models.TraderProfile) (models.TradeDecision, error) {
	if g.apiKey == "" {
		return models.TradeDecision{}, ErrMissingAPIKey
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(NewRequest(market, trader))}}}},
		GenerationConfig: map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   responseSchema,
		},
	}

	req := g.client.R(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", g.apiKey).
		SetBody(body)

	resp, err := g.client.Do(ctx, http.MethodPost, fmt.Sprintf("/models/%s:generateContent", g.model), req)
	if err != nil {
		return models.TradeDecision{}, fmt.Errorf("failed to call decision model: %w", err)
	}

	return g.parse(resp.Body())
}

func buildPrompt(r Request) string {
	return fmt.Sprintf(promptTemplate, r.TraderName, r.TraderWinRate, r.Question, fmt.Sprint(r.OddsYes))
}

// parse digs the answer out of the generateContent envelope and validates it.
func (g *GeminiDecider) parse(envelope []byte) (models.TradeDecision, error) {
	if !gjson.ValidBytes(envelope) {
		return models.TradeDecision{}, fmt.Errorf("%w: envelope is not json", ErrMalformedResponse)
	}
	text := gjson.GetBytes(envelope, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		return models.TradeDecision{}, fmt.Errorf("%w: no candidate text", ErrMalformedResponse)
	}

	raw := strings.TrimSpace(text.String())
	if raw == "" {
		raw = "{}"
	}
	if !gjson.Valid(raw) {
		return models.TradeDecision{}, fmt.Errorf("%w: answer is not json", ErrMalformedResponse)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return models.TradeDecision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := g.schema.Validate(doc); err != nil {
		return models.TradeDecision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	answer := gjson.Parse(raw)
	decision := models.Decision(answer.Get("decision").String())
	if decision == "" {
		decision = models.DecisionHold
	}
	reasoning := answer.Get("reasoning").String()
	if reasoning == "" {
		reasoning = insufficientData
	}

	return models.TradeDecision{
		Decision:  decision,
		Reasoning: truncate(reasoning, g.maxReasoning),
		Amount:    answer.Get("amount").Float(),
	}, nil
}
