package domain

// Message is a single item delivered to a session observer: a step event, or
// one of the terminal signals.
type Message struct {
	Type   MessageType   `json:"type"`
	Step   *StepEvent    `json:"step,omitempty"`
	Report *SafetyReport `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// IsTerminal reports whether the message ends a session stream.
func (m Message) IsTerminal() bool {
	return m.Type == MessageTypeFinal || m.Type == MessageTypeError
}

// StepMessage wraps a step event.
func StepMessage(evt StepEvent) Message {
	return Message{Type: MessageTypeStep, Step: &evt}
}

// FinalMessage wraps a terminal report.
func FinalMessage(report *SafetyReport) Message {
	return Message{Type: MessageTypeFinal, Report: report}
}

// ErrorMessage wraps a terminal failure reason.
func ErrorMessage(reason string) Message {
	return Message{Type: MessageTypeError, Error: reason}
}

// ErrorPayload is the body of an error frame on the wire.
type ErrorPayload struct {
	Message string `json:"message"`
}
