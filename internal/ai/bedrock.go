package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"ajiri/internal/config"
	"ajiri/internal/platform/awsclient"
)

const anthropicVersion = "bedrock-2023-05-31"

// DisabledAnswer is returned instead of a model answer when Bedrock is turned off.
const DisabledAnswer = "AI analysis is currently disabled. Please enable Bedrock in your configuration."

var ErrEmptyAnswer = errors.New("model returned an empty answer")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answerer produces an answer for a fully rendered prompt.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

// UpstreamError is a failure reported by the model provider.
type UpstreamError struct {
	Code    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("bedrock %s: %s", e.Code, e.Message)
	}
	return "bedrock: " + e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type invokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type BedrockClient struct {
	api         invokeAPI
	modelID     string
	maxTokens   int
	temperature float64
	topP        float64
	timeout     time.Duration
}

type messagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	Messages         []Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func NewBedrockClient(awsCfg aws.Config, cfg config.BedrockConfig) *BedrockClient {
	return newBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg)
}

func newBedrockClient(api invokeAPI, cfg config.BedrockConfig) *BedrockClient {
	timeout := time.Duration(cfg.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &BedrockClient{
		api:         api,
		modelID:     cfg.ModelID,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		timeout:     timeout,
	}
}

func (c *BedrockClient) Answer(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		TopP:             c.topP,
		Messages:         []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request failed: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.api.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", &UpstreamError{
			Code:    awsclient.ErrorCode(err),
			Message: awsclient.Describe(err),
			Err:     err,
		}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", fmt.Errorf("parse bedrock response failed: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", ErrEmptyAnswer
	}
	answer := strings.TrimSpace(parsed.Content[0].Text)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

// DisabledClient answers every prompt with DisabledAnswer.
type DisabledClient struct{}

func (DisabledClient) Answer(context.Context, string) (string, error) {
	return DisabledAnswer, nil
}
