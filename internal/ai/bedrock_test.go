package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"ajiri/internal/config"
)

type fakeInvoker struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func testBedrockConfig() config.BedrockConfig {
	return config.Default().Bedrock
}

func TestAnswerBuildsAnthropicRequest(t *testing.T) {
	fake := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":"  KES 1,200  "}],"stop_reason":"end_turn"}`)}
	client := newBedrockClient(fake, testBedrockConfig())

	answer, err := client.Answer(context.Background(), "What is the total?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "KES 1,200" {
		t.Fatalf("Answer() = %q, want trimmed text", answer)
	}
	if aws.ToString(fake.input.ModelId) != testBedrockConfig().ModelID {
		t.Fatalf("ModelId = %q", aws.ToString(fake.input.ModelId))
	}

	var req map[string]any
	if err := json.Unmarshal(fake.input.Body, &req); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if req["anthropic_version"] != "bedrock-2023-05-31" {
		t.Fatalf("anthropic_version = %v", req["anthropic_version"])
	}
	if req["max_tokens"] != float64(1000) || req["temperature"] != 0.3 || req["top_p"] != 0.9 {
		t.Fatalf("sampling params = %v", req)
	}
	messages, _ := req["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("messages = %v", req["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "What is the total?" {
		t.Fatalf("message = %v", first)
	}
}

func TestAnswerEmptyContent(t *testing.T) {
	for _, body := range []string{`{"content":[]}`, `{"content":[{"type":"text","text":"   "}]}`} {
		client := newBedrockClient(&fakeInvoker{body: []byte(body)}, testBedrockConfig())
		if _, err := client.Answer(context.Background(), "q"); !errors.Is(err, ErrEmptyAnswer) {
			t.Fatalf("Answer(%s) error = %v, want ErrEmptyAnswer", body, err)
		}
	}
}

func TestAnswerWrapsUpstreamError(t *testing.T) {
	fake := &fakeInvoker{err: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}}
	client := newBedrockClient(fake, testBedrockConfig())

	_, err := client.Answer(context.Background(), "q")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Answer() error = %v, want *UpstreamError", err)
	}
	if upstream.Code != "ThrottlingException" || !strings.Contains(upstream.Message, "throttling") {
		t.Fatalf("upstream = %+v", upstream)
	}
}

func TestDisabledClient(t *testing.T) {
	got, err := DisabledClient{}.Answer(context.Background(), "anything")
	if err != nil || got != DisabledAnswer {
		t.Fatalf("Answer() = %q, %v", got, err)
	}
}

func TestDocumentPrompt(t *testing.T) {
	got := DocumentPrompt("Invoice total: 100", "What is the total?")
	want := "You are a helpful assistant that answers questions based on the provided document context.\n\n" +
		"Document Context:\nInvoice total: 100\n\n" +
		"Question: What is the total?\n\n" +
		"Please provide a clear, concise answer based only on the information in the document."
	if got != want {
		t.Fatalf("DocumentPrompt() = %q", got)
	}
}
