package aiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"
)

// Call states
const (
	stateReady            = "Ready"
	stateAwaitingResponse = "AwaitingResponse"
	stateDone             = "Done"   // terminal: response extracted
	stateFailed           = "Failed" // terminal: err is set
)

// Call triggers
const (
	triggerSend      = "Send"
	triggerResponded = "Responded"
	triggerFail      = "Fail"
)

// call is the per-invocation data the machine works on. It is discarded after use.
type call struct {
	id       string
	request  openai.ChatCompletionRequest
	response *Response
	err      *RequestError
}

// newLifecycle wires a fresh machine for one call. Triggers fired from entry actions are
// queued and processed once the current transition completes.
func (c *Client) newLifecycle(cl *call) *stateless.StateMachine {
	fsm := stateless.NewStateMachineWithMode(stateReady, stateless.FiringQueued)

	fsm.Configure(stateReady).
		Permit(triggerSend, stateAwaitingResponse)

	// State: AwaitingResponse
	// Action: issue the upstream request and turn the reply into a Response.
	fsm.Configure(stateAwaitingResponse).
		OnEntry(func(ctx context.Context, _ ...any) error {
			c.log.Debug("sending chat completion", "request_id", cl.id, "model", cl.request.Model,
				"max_tokens", cl.request.MaxTokens, "temperature", cl.request.Temperature)

			resp, err := c.llmClient.CreateChatCompletion(ctx, cl.request)
			if err != nil {
				cl.err = newRequestError(err)
				return fsm.FireCtx(ctx, triggerFail)
			}
			out, err := toResponse(resp)
			if err != nil {
				cl.err = &RequestError{Kind: KindMalformed, Err: err}
				return fsm.FireCtx(ctx, triggerFail)
			}
			cl.response = out
			return fsm.FireCtx(ctx, triggerResponded)
		}).
		Permit(triggerResponded, stateDone).
		Permit(triggerFail, stateFailed)

	fsm.Configure(stateDone).
		OnEntry(func(_ context.Context, _ ...any) error {
			c.log.Debug("chat completion received", "request_id", cl.id, "model", cl.response.Model,
				"total_tokens", cl.response.Usage.TotalTokens)
			return nil
		})

	// State: Failed
	// Action: the single place a failed call is logged.
	fsm.Configure(stateFailed).
		OnEntry(func(_ context.Context, _ ...any) error {
			if cl.err == nil {
				cl.err = &RequestError{Kind: KindTransport, Err: errors.New("call failed without a specific error")}
			}
			c.log.Error("chat completion failed", "request_id", cl.id, "model", cl.request.Model,
				"kind", cl.err.Kind.String(), "status", cl.err.StatusCode, "error", cl.err.Err)
			return nil
		})

	return fsm
}

// run drives one call from Ready to a terminal state.
func (c *Client) run(ctx context.Context, req openai.ChatCompletionRequest) (*Response, error) {
	cl := &call{id: uuid.NewString(), request: req}
	fsm := c.newLifecycle(cl)

	if err := fsm.FireCtx(ctx, triggerSend); err != nil {
		return nil, fmt.Errorf("aiclient: call lifecycle: %w", err)
	}

	switch state := fsm.MustState(); state {
	case stateDone:
		return cl.response, nil
	case stateFailed:
		return nil, cl.err
	default:
		return nil, fmt.Errorf("aiclient: call ended in unexpected state %v", state)
	}
}
