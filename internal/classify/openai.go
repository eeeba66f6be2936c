package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"news-trader/internal/trace"
)

// maxArticleChars caps how much article text goes into one request.
const maxArticleChars = 60000

const systemPrompt = `For the given article, predict if %s will rise in the next trading window.
If the article does not mention anything about %s, return an answer of NA.
Otherwise, return a YES or NO. The only acceptable responses are YES, NO or NA.`

// OpenAI classifies articles through the chat completions API. The response
// is free text; callers apply the substring normalization rule.
type OpenAI struct {
	client *resty.Client
	model  string
}

// NewOpenAI creates a classifier for the given model (e.g. gpt-4o-mini).
func NewOpenAI(model string) *OpenAI {
	client := resty.New().
		SetBaseURL("https://api.openai.com").
		SetTimeout(60 * time.Second)
	return &OpenAI{client: client, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify asks whether the article implies the symbol will rise.
func (o *OpenAI) Classify(ctx context.Context, symbol, article string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-classify")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", errors.New("OPENAI_API_KEY missing")
	}

	if len(article) > maxArticleChars {
		article = article[:maxArticleChars]
	}

	body := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, symbol, symbol)},
			{Role: "user", Content: article},
		},
	}

	var out chatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(body).
		SetResult(&out).
		Post("/v1/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("openai http %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices in openai response")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
