package prefill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultMaxIterations = 5

// ErrLookupFailed marks a source lookup that failed. Such failures never
// abort the loop; the model sees an error payload and decides how to
// proceed.
var ErrLookupFailed = errors.New("lookup failed")

// Request identifies the client being prefilled and the optional
// collaborator ids the model may look up.
type Request struct {
	ClientID  string
	AdvisorID string
	CarrierID string
	Document  *Document
}

// Document is a scanned document attached to the request for visual
// field extraction.
type Document struct {
	MediaType string
	Base64    string
}

// Result is the consolidated outcome of a prefill run, taken verbatim
// from the model's final report.
type Result struct {
	KnownData   map[string]any `json:"known_data"`
	SourcesUsed []string       `json:"sources_used"`
	FieldsFound int            `json:"fields_found"`
	Summary     string         `json:"summary"`

	// Exhausted is set when the loop hit its iteration cap before the
	// model reported results. Not a failure: the session simply starts
	// without prefilled data.
	Exhausted bool `json:"exhausted,omitempty"`
}

// Step describes one tool execution inside the loop.
type Step struct {
	Tool        string
	Label       string
	Duration    time.Duration
	FieldsFound int
	Err         error
}

// StepFunc receives a progress event after each tool execution.
type StepFunc func(Step)

// Agent runs a bounded tool-calling loop that consults read-only data
// sources and consolidates what it finds.
type Agent struct {
	chatModel   model.ToolCallingChatModel
	sources     Sources
	maxIters    int
	toolTimeout time.Duration
	logger      *slog.Logger
}

type Option func(*Agent)

// WithMaxIterations caps the number of model round trips. The default
// is 5.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIters = n
		}
	}
}

// WithToolTimeout bounds each individual source lookup.
func WithToolTimeout(d time.Duration) Option {
	return func(a *Agent) { a.toolTimeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAgent(chatModel model.ToolCallingChatModel, sources Sources, opts ...Option) *Agent {
	a := &Agent{
		chatModel: chatModel,
		sources:   sources,
		maxIters:  defaultMaxIterations,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the loop to completion and returns the consolidated
// result.
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	return a.RunStream(ctx, req, nil)
}

// RunStream is Run with a progress callback invoked after every tool
// execution. onStep may be nil.
func (a *Agent) RunStream(ctx context.Context, req Request, onStep StepFunc) (*Result, error) {
	tools := agentTools()
	msgs := []*schema.Message{
		schema.SystemMessage(agentSystemPrompt),
		requestMessage(req),
	}

	gathered := map[string]any{}
	sourcesSeen := 0

	for iter := 0; iter < a.maxIters; iter++ {
		resp, err := a.chatModel.Generate(ctx, msgs, model.WithTools(tools))
		if err != nil {
			return nil, fmt.Errorf("prefill generate: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			a.logger.Warn("prefill model replied without tool calls", "iteration", iter)
			msgs = append(msgs, resp,
				schema.UserMessage("Use the tools to gather data, then call report_prefill_results with what you found."))
			continue
		}
		msgs = append(msgs, resp)

		var final *Result
		for _, call := range resp.ToolCalls {
			name := call.Function.Name
			if name == toolReportResults {
				r, perr := parseReport(call.Function.Arguments)
				if perr != nil {
					a.logger.Warn("malformed prefill report", "error", perr)
					msgs = append(msgs, schema.ToolMessage(errorResult(perr), call.ID))
					continue
				}
				if onStep != nil {
					onStep(Step{Tool: name, FieldsFound: len(r.KnownData)})
				}
				msgs = append(msgs, schema.ToolMessage("Results recorded.", call.ID))
				final = r
				continue
			}

			start := time.Now()
			result, fields, execErr := a.executeTool(ctx, name, call.Function.Arguments)
			elapsed := time.Since(start)
			if execErr != nil {
				a.logger.Warn("prefill lookup failed", "tool", name, "error", execErr)
				result = errorResult(execErr)
			} else {
				sourcesSeen++
				mergeInto(gathered, result)
			}
			if onStep != nil {
				onStep(Step{
					Tool:        name,
					Label:       SourceLabels[name],
					Duration:    elapsed,
					FieldsFound: fields,
					Err:         execErr,
				})
			}
			msgs = append(msgs, schema.ToolMessage(result, call.ID))
		}
		if final != nil {
			a.logger.Info("prefill complete",
				"iterations", iter+1,
				"fields_found", final.FieldsFound,
				"sources_used", len(final.SourcesUsed))
			return final, nil
		}
	}

	a.logger.Warn("prefill iteration cap reached", "iterations", a.maxIters, "fields_seen", len(gathered))
	return &Result{
		KnownData: map[string]any{},
		Summary: fmt.Sprintf("Stopped after %d rounds without a final report; %d field(s) were seen across %d lookup(s) but never consolidated.",
			a.maxIters, len(gathered), sourcesSeen),
		Exhausted: true,
	}, nil
}

func (a *Agent) executeTool(ctx context.Context, name, rawArgs string) (result string, fields int, err error) {
	if a.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.toolTimeout)
		defer cancel()
	}

	var data map[string]any
	switch name {
	case toolLookupProfile:
		args, aerr := parseLookupArgs(rawArgs, "client_id")
		if aerr != nil {
			return "", 0, aerr
		}
		if a.sources.Profile == nil {
			return "", 0, fmt.Errorf("%w: no profile source configured", ErrLookupFailed)
		}
		data, err = a.sources.Profile.LookupProfile(ctx, args)
	case toolLookupNotes:
		args, aerr := parseLookupArgs(rawArgs, "client_id")
		if aerr != nil {
			return "", 0, aerr
		}
		if a.sources.Notes == nil {
			return "", 0, fmt.Errorf("%w: no notes source configured", ErrLookupFailed)
		}
		data, err = a.sources.Notes.LookupNotes(ctx, args)
	case toolLookupFinancial:
		args, aerr := parseLookupArgs(rawArgs, "client_id")
		if aerr != nil {
			return "", 0, aerr
		}
		if a.sources.Financial == nil {
			return "", 0, fmt.Errorf("%w: no financial history source configured", ErrLookupFailed)
		}
		data, err = a.sources.Financial.LookupFinancialHistory(ctx, args)
	case toolGetPreferences:
		args, aerr := parseLookupArgs(rawArgs, "advisor_id")
		if aerr != nil {
			return "", 0, aerr
		}
		if a.sources.Preferences == nil {
			return "", 0, fmt.Errorf("%w: no preference source configured", ErrLookupFailed)
		}
		data, err = a.sources.Preferences.LookupPreferences(ctx, args)
	case toolScoreSuitability:
		var args struct {
			CarrierID  string         `json:"carrier_id"`
			ClientData map[string]any `json:"client_data"`
		}
		if uerr := sonic.UnmarshalString(rawArgs, &args); uerr != nil {
			return "", 0, fmt.Errorf("%w: bad arguments: %v", ErrLookupFailed, uerr)
		}
		if a.sources.Suitability == nil {
			return "", 0, fmt.Errorf("%w: no suitability scorer configured", ErrLookupFailed)
		}
		data, err = a.sources.Suitability.Score(ctx, args.CarrierID, args.ClientData)
	case toolExtractDocument:
		// The model does the visual extraction; the tool just echoes the
		// fields back so they enter the transcript as a tool result.
		var args struct {
			ExtractedFields map[string]any `json:"extracted_fields"`
		}
		if uerr := sonic.UnmarshalString(rawArgs, &args); uerr != nil {
			return "", 0, fmt.Errorf("%w: bad arguments: %v", ErrLookupFailed, uerr)
		}
		data = args.ExtractedFields
	default:
		return "", 0, fmt.Errorf("%w: unknown tool %q", ErrLookupFailed, name)
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s: %v", ErrLookupFailed, name, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	out, merr := sonic.MarshalString(data)
	if merr != nil {
		return "", 0, fmt.Errorf("%w: encode result: %v", ErrLookupFailed, merr)
	}
	return out, len(data), nil
}

func parseLookupArgs(rawArgs, key string) (string, error) {
	var args map[string]string
	if err := sonic.UnmarshalString(rawArgs, &args); err != nil {
		return "", fmt.Errorf("%w: bad arguments: %v", ErrLookupFailed, err)
	}
	id := args[key]
	if id == "" {
		return "", fmt.Errorf("%w: missing %s", ErrLookupFailed, key)
	}
	return id, nil
}

func parseReport(rawArgs string) (*Result, error) {
	var r Result
	if err := sonic.UnmarshalString(rawArgs, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if r.KnownData == nil {
		r.KnownData = map[string]any{}
	}
	return &r, nil
}

func errorResult(err error) string {
	out, merr := sonic.MarshalString(map[string]string{"error": err.Error()})
	if merr != nil {
		return `{"error":"lookup failed"}`
	}
	return out
}

func mergeInto(gathered map[string]any, resultJSON string) {
	var data map[string]any
	if err := sonic.UnmarshalString(resultJSON, &data); err != nil {
		return
	}
	for k, v := range data {
		gathered[k] = v
	}
}
