// Package bedrock implements the inference client against AWS Bedrock
// Runtime, invoking an Anthropic Claude vision model with card images.
package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"cardlens/internal/config"
	"cardlens/internal/domain"
	"cardlens/internal/port"
)

// anthropicVersion is the Bedrock-side Anthropic messages API version.
const anthropicVersion = "bedrock-2023-05-31"

// Client issues multimodal InvokeModel calls. One Invoke is exactly one
// billable model call: the SDK retryer is disabled so a failed attempt is
// surfaced to the user instead of retried.
type Client struct {
	client      *bedrockruntime.Client
	modelID     string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

var _ port.ModelInvoker = (*Client)(nil)

// NewClient creates a Bedrock client from an explicit config object.
// Credentials fall back to the default AWS chain when not set in config.
func NewClient(cfg *config.BedrockConfig) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var brOpts []func(*bedrockruntime.Options)
	if cfg.Endpoint != "" {
		brOpts = append(brOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		client:      bedrockruntime.NewFromConfig(awsCfg, brOpts...),
		modelID:     cfg.ModelID,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

// contentBlock is one entry in an Anthropic message content array.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type requestBody struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

// apiResponse models the Anthropic messages response returned by Bedrock.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Invoke sends one model request carrying the given images followed by the
// text prompt, and returns the raw model text.
func (c *Client) Invoke(ctx context.Context, prompt string, images []domain.NormalizedImage) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("%w: no images to send", domain.ErrTransientService)
	}

	content := make([]contentBlock, 0, len(images)+1)
	for _, img := range images {
		content = append(content, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: img.MediaType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	content = append(content, contentBlock{Type: "text", Text: prompt})

	body, err := json.Marshal(requestBody{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		Messages:         []message{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", mapInvokeError(err)
	}

	var resp apiResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("%w: unmarshaling model response: %v", domain.ErrParse, err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%w: no content in model response", domain.ErrParse)
	}
	return resp.Content[0].Text, nil
}
