package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"rfp-service/internal/extract"
	"rfp-service/internal/util"
)

const systemText = "You extract procurement requirements from RFP text. " +
	"Return only a JSON object: {\"quantity\": <integer>, \"unit\": \"<unit>\", \"tags\": [\"<lowercase tag>\", ...]}. " +
	"Tags must be single lowercase terms describing product qualities. No prose."

const promptTemplate = `Extract the requested quantity, unit, and qualitative requirement tags from this RFP:

%s`

// Client asks the Anthropic API for a structured extraction hint. The
// pipeline treats any failure as a soft miss and falls back to its heuristic
// extractor, so errors here never fail a run.
type Client struct {
	client sdk.Client
	model  string
	logger *zap.Logger
}

// NewClient creates an extraction-assist client.
func NewClient(apiKey, model string) *Client {
	return &Client{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: util.GetLogger(),
	}
}

// ExtractHint requests a structured hint for the RFP content.
func (c *Client) ExtractHint(ctx context.Context, content string) (*extract.Hint, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 512,
		System:    []sdk.TextBlockParam{{Text: systemText}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(fmt.Sprintf(promptTemplate, content))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction assist: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}

	var hint extract.Hint
	if err := json.Unmarshal([]byte(cleanJSON(text.String())), &hint); err != nil {
		c.logger.Warn("Extraction assist returned malformed JSON", zap.Error(err))
		return nil, fmt.Errorf("extraction assist: malformed response: %w", err)
	}

	return &hint, nil
}

// cleanJSON strips markdown code fences the model sometimes wraps around
// JSON output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
