package appintake

import "errors"

// Failure kinds surfaced to callers. Field-level problems are never
// errors; they attach to the field as a validation message instead.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSubmissionFailed = errors.New("submission failed")
)

// terminalReply is returned verbatim for any user input once a session
// reached a terminal phase.
const terminalReply = "This session is already complete."
