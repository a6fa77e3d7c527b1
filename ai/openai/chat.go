// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/linkrank/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrUnknownNode is returned when a completion targets a node that has no
// configured endpoint.
var ErrUnknownNode = errors.New("unknown chat node")

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
// Requests without a target go to the default client; targeted requests go
// to the node's own client.
type ChatModel struct {
	client llms.Model
	nodes  map[ai.NodeRef]llms.Model
	logger *slog.Logger
}

// newChatModel is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newChatClient(config.ChatHost, config.ChatModel, config.Token)
	if err != nil {
		return nil, err
	}

	nodes := make(map[ai.NodeRef]llms.Model, len(config.Nodes))
	for ref, node := range config.Nodes {
		nodeClient, err := newChatClient(node.Host, node.Model, config.Token)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", ref, err)
		}
		nodes[ref] = nodeClient
	}

	return &ChatModel{
		client: client,
		nodes:  nodes,
		logger: slog.Default().With("component", "openai-chat"),
	}, nil
}

func newChatClient(host, model, token string) (*openai.LLM, error) {
	return openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithModel(model),
	)
}

// NewChatModel creates a new chat model using the provided configuration.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

// Complete sends messages to the default or targeted endpoint and returns the
// first choice's content.
func (c *ChatModel) Complete(ctx context.Context, messages []ai.Message, opts ai.CompletionOptions) (string, error) {
	client := c.client
	if opts.Target != "" {
		nodeClient, ok := c.nodes[opts.Target]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownNode, opts.Target)
		}
		client = nodeClient
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.MessageContent{
			Role:  messageType(msg.Role),
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	var streamed strings.Builder
	if opts.Stream {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			streamed.Write(chunk)
			return nil
		}))
	}

	response, err := client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		c.logger.Error("failed to generate content", "target", opts.Target, "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model", "target", opts.Target)
		return streamed.String(), nil
	}

	return response.Choices[0].Content, nil
}

func messageType(role ai.Role) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
