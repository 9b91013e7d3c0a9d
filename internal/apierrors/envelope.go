package apierrors

import "time"

// Message is one entry in a Result envelope.
type Message struct {
	Code        Code        `json:"code"`
	MessageType MessageType `json:"messageType"`
	Text        string      `json:"text"`
	Timestamp   string      `json:"timestamp"`
}

// Result is the IDTA Result envelope used for every non-2xx response.
type Result struct {
	Messages []Message `json:"messages"`
}

// ToResult renders err as a single-message Result envelope. Errors
// that are not an *APIError are reported as InternalServerError
// without leaking their underlying text.
func ToResult(err error) Result {
	apiErr, ok := As(err)
	if !ok {
		apiErr = Internal("internal server error", err)
	}

	text := apiErr.Message
	if apiErr.MessageType == MessageTypeException && apiErr.Code == CodeInternalServerError {
		// Never leak infrastructure error text in a 5xx body.
		text = "internal server error"
	}

	return Result{Messages: []Message{{
		Code:        apiErr.Code,
		MessageType: apiErr.MessageType,
		Text:        text,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}}}
}
