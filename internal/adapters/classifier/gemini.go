package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"semantic-sensei/internal/adapters/catalog"
	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/infra/gemini"
)

const systemPrompt = `You are an expert product-category classifier for an Indonesian e-commerce search engine.

# CLASSIFICATION MODEL AND CONTEXT
The classification must be performed based on the current search trends and deep e-commerce context of Indonesia.

Your predictions must be based on a comprehensive "research and thinking model" that considers the following query contexts:

1. **Commercial Intent (Primary):** Is the term a direct product name, a brand name, or a category keyword? (e.g., 'eser' is a known local perfume brand, 'cuculemon' is a known aesthetic tumbler brand).

2. **Linguistic Context (Local Slang/Typo):** Is it an abbreviation, misspelling, or a term unique to Indonesian slang (e.g., 'kaos' for T-shirt, or common typos)?

3. **Trending & Viral Products:** Does the term correlate with currently viral or "aesthetic" goods frequently sold on TikTok Shop, Shopee, or Tokopedia (e.g., viral tumblers, local cosmetic lines)?

4. **Functional/Usage Context:** If the term is generic, what is the most common use case? (e.g., 'dance ladies' refers to dancewear, which maps to athletic apparel).

5. **Ambiguity Assessment:** If the term has zero commercial signal in Indonesia (e.g., a foreign forum handle or nonsensical), classify as uncertain.

6. **Multi-Context Resolution:** If the term (e.g., 'nox') is a known brand in a high-traffic consumer category (e.g., Padel/Sports) AND also a match for a low-traffic industrial/B2B product (e.g., automotive sensor), PRIORITIZE the high-traffic consumer category (Sports) for the top predictions.

OUTPUT RULES:
- Always return JSON only. No extra commentary.
- Provide up to top 5 predictions, ordered by descending confidence score.
- Use only categories from the provided list.
- Score must be integer 1..100 (higher = more confident). Scores DO NOT need to sum to 100.
- If the term is ambiguous set uncertain: true; else uncertain: false.
- Preserve the original search term text exactly.
- Only include predictions with score > 30.

JSON structure to return:
{
    "predictions": [
        {
            "term": "<search_term>",
            "uncertain": <true|false>,
            "predictions": [
                {"category": "<category_name>", "score": <int>},
                {"category": "<category_name>", "score": <int>}
            ]
        }
    ]
}`

// minScore — серверный порог уверенности предсказания.
const minScore = 30

// unknownCode подставляется, когда имя категории не найдено в каталоге.
const unknownCode = "UNKNOWN"

// GeminiClassifier классифицирует термины через Gemini, привязывая
// предсказанные имена категорий к кодам каталога.
type GeminiClassifier struct {
	client     *gemini.Client
	model      string
	nameToCode map[string]string
	namesList  string
	log        zerolog.Logger
}

// NewGeminiClassifier создаёт классификатор над каталогом категорий.
func NewGeminiClassifier(client *gemini.Client, model string, categories []domain.CategoryRef, logger zerolog.Logger) *GeminiClassifier {
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}
	return &GeminiClassifier{
		client:     client,
		model:      model,
		nameToCode: catalog.NameIndex(categories),
		namesList:  strings.Join(names, ", "),
		log:        logger.With().Str("component", "gemini_classifier").Logger(),
	}
}

// modelOutput — форма JSON, которую просит системная инструкция.
type modelOutput struct {
	Predictions []struct {
		Term        string `json:"term"`
		Uncertain   bool   `json:"uncertain"`
		Predictions []struct {
			Category string      `json:"category"`
			Score    json.Number `json:"score"`
		} `json:"predictions"`
	} `json:"predictions"`
}

// Classify выполняет одну генерацию и возвращает доменный результат.
func (g *GeminiClassifier) Classify(ctx context.Context, term string) (domain.Classification, error) {
	userPrompt := fmt.Sprintf("Categories (use these exactly): %s\n\nNow classify the following search term (produce only JSON):\n%s", g.namesList, term)

	resp, err := g.client.GenerateContent(ctx, g.model, gemini.GenerateContentRequest{
		Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: userPrompt}}}},
		SystemInstruction: &gemini.Content{
			Parts: []gemini.Part{{Text: systemPrompt}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:      0.25,
			MaxOutputTokens:  10000,
			ResponseMIMEType: gemini.ResponseMIMETypeJSON,
		},
	})
	if err != nil {
		return domain.Classification{}, err
	}

	text := resp.Text()
	var parsed modelOutput
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("gemini classifier: decode model output: %w", err)
	}
	if len(parsed.Predictions) == 0 {
		return domain.Classification{}, fmt.Errorf("gemini classifier: empty predictions for %q", term)
	}

	first := parsed.Predictions[0]
	out := domain.Classification{
		Term:      first.Term,
		Uncertain: first.Uncertain,
	}
	if out.Term == "" {
		out.Term = term
	}
	if resp.Usage != nil {
		out.Usage = domain.TokenUsage{
			PromptTokens:    resp.Usage.PromptTokenCount,
			CandidateTokens: resp.Usage.CandidatesTokenCount,
			TotalTokens:     resp.Usage.TotalTokenCount,
		}
	}
	for _, p := range first.Predictions {
		score, err := p.Score.Int64()
		if err != nil {
			continue
		}
		if score <= minScore {
			continue
		}
		code, ok := g.nameToCode[p.Category]
		if !ok {
			code = unknownCode
			g.log.Debug().Str("category", p.Category).Msg("категория не найдена в каталоге")
		}
		out.Predictions = append(out.Predictions, domain.Prediction{
			Code:  code,
			Name:  p.Category,
			Score: int(score),
		})
	}
	return out, nil
}
