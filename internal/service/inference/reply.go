package inference

import (
	"bytes"
	"encoding/json"
)

const (
	// NoContentText is shown when the module answered without usable choices.
	NoContentText = "No response content received"
	// ErrorText is shown when the module call failed.
	ErrorText = "Sorry, there was an error processing your request."
)

// Kind tags the variant held by a Result.
type Kind int

const (
	// KindStructured is a chat completion with at least one choice.
	KindStructured Kind = iota
	// KindRaw is a non-object value rendered as text.
	KindRaw
	// KindEmpty is an object (or null) without usable choices.
	KindEmpty
	// KindFailure means the call itself failed.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindRaw:
		return "raw"
	case KindEmpty:
		return "empty"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result is the normalized outcome of one inference call.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

// Failed reports whether the call failed.
func (r Result) Failed() bool {
	return r.Kind == KindFailure
}

// Failure builds the failure variant for err.
func Failure(err error) Result {
	return Result{Kind: KindFailure, Text: ErrorText, Err: err}
}

// completion mirrors the subset of a chat completion body the widget reads.
type completion struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Decode classifies a raw module payload. Objects are parsed as chat
// completions; arrays and null count as objects without choices; strings are
// unquoted; any other scalar is used verbatim.
func Decode(raw json.RawMessage) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Result{Kind: KindRaw}
	}

	switch trimmed[0] {
	case '{':
		var body completion
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return Result{Kind: KindEmpty, Text: NoContentText}
		}
		if len(body.Choices) == 0 || body.Choices[0].Message == nil {
			return Result{Kind: KindEmpty, Text: NoContentText}
		}
		return Result{Kind: KindStructured, Text: body.Choices[0].Message.Content}
	case '[', 'n':
		return Result{Kind: KindEmpty, Text: NoContentText}
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return Result{Kind: KindRaw, Text: string(trimmed)}
		}
		return Result{Kind: KindRaw, Text: text}
	default:
		return Result{Kind: KindRaw, Text: string(trimmed)}
	}
}
