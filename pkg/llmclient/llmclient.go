// Package llmclient implements the chat-style gateway client the pipeline
// uses for product extraction and description generation. It follows the
// TensorZero inference-gateway shape of the original's llm::tensorzero
// module: a /inference endpoint accepting a function name plus a list of
// role/content messages, replying with typed content blocks.
package llmclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/itsneelabh/hermes/internal/config"
)

// ErrMissingGateway is returned when no gateway URL is configured.
var ErrMissingGateway = errors.New("llm gateway url is not configured")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the gateway's normalized reply.
type Response struct {
	Text  string
	Usage *Usage
}

// Usage reports token accounting, when the gateway provides it.
type Usage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
}

// Client talks to the inference gateway.
type Client struct {
	http   *http.Client
	config config.LLMConfig
}

// New builds a Client bound to httpClient and cfg.
func New(httpClient *http.Client, cfg config.LLMConfig) *Client {
	return &Client{http: httpClient, config: cfg}
}

type chatRequest struct {
	FunctionName string    `json:"function_name"`
	ModelName    *string   `json:"model_name,omitempty"`
	Input        chatInput `json:"input"`
}

type chatInput struct {
	Messages []Message `json:"messages"`
}

type gatewayResponse struct {
	Content []responseContent `json:"content"`
	Usage   *Usage             `json:"usage,omitempty"`
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Chat sends messages to the configured gateway function and returns the
// first text content block in the reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (Response, error) {
	if c.config.GatewayURL == "" {
		return Response{}, ErrMissingGateway
	}

	functionName := c.config.FunctionName
	if functionName == "" {
		functionName = "hsuf_enrichment"
	}
	var modelName *string
	if c.config.Model != "" {
		modelName = &c.config.Model
	}

	body := chatRequest{
		FunctionName: functionName,
		ModelName:    modelName,
		Input:        chatInput{Messages: messages},
	}
	encoded, err := sonic.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("llm encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GatewayURL+"/inference", bytes.NewReader(encoded))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("llm http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("llm http error: status %d", resp.StatusCode)
	}

	var payload gatewayResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Response{}, fmt.Errorf("llm invalid response: %w", err)
	}

	for _, block := range payload.Content {
		if block.Type == "text" {
			return Response{Text: block.Text, Usage: payload.Usage}, nil
		}
	}
	return Response{}, fmt.Errorf("llm invalid response: missing text content")
}
