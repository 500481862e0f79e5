// Package modeltest provides a scripted chat model for tests.
package modeltest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var callSeq atomic.Int64

// FakeChatModel returns scripted responses in order and records every
// request it receives, including the tools offered on each call.
type FakeChatModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	next      int
	bound     []*schema.ToolInfo

	// Requests holds the message slice of each Generate call, in order.
	Requests [][]*schema.Message
	// Tools holds the tools offered on each Generate call, in order.
	Tools [][]*schema.ToolInfo
}

// New builds a fake that replies with the given messages, one per
// Generate call. A call past the script fails.
func New(responses ...*schema.Message) *FakeChatModel {
	return &FakeChatModel{responses: responses}
}

func (m *FakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := model.GetCommonOptions(&model.Options{}, opts...)
	tools := o.Tools
	if tools == nil {
		tools = m.bound
	}
	m.Requests = append(m.Requests, input)
	m.Tools = append(m.Tools, tools)

	if m.next >= len(m.responses) {
		return nil, fmt.Errorf("no scripted response for call %d", m.next+1)
	}
	resp := m.responses[m.next]
	m.next++
	return resp, nil
}

func (m *FakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	resp, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{resp}), nil
}

func (m *FakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := &FakeChatModel{
		responses: m.responses,
		next:      m.next,
		bound:     tools,
	}
	return clone, nil
}

// Calls reports how many scripted responses have been consumed.
func (m *FakeChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// TextResponse scripts a plain assistant reply.
func TextResponse(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

// ToolCallResponse scripts an assistant reply carrying a single tool
// call with the given JSON-encodable arguments.
func ToolCallResponse(name string, args any) *schema.Message {
	raw, err := sonic.MarshalString(args)
	if err != nil {
		panic(fmt.Sprintf("modeltest: encode tool arguments: %v", err))
	}
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:   fmt.Sprintf("call-%d", callSeq.Add(1)),
		Type: "function",
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: raw,
		},
	}})
}
