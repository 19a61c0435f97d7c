// Package ipc carries newline-delimited JSON commands between short-lived
// scancap processes and the process that owns the active recording.
package ipc

import "fmt"

// Commands understood by the recording owner.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
	CommandToggle = "toggle"
	CommandCancel = "cancel"
)

// Request is one command sent to the owner.
type Request struct {
	Command string `json:"command"`
}

// Validate rejects commands the owner does not understand.
func (r Request) Validate() error {
	switch r.Command {
	case CommandStatus, CommandStop, CommandToggle, CommandCancel:
		return nil
	case "":
		return fmt.Errorf("missing command")
	default:
		return fmt.Errorf("unknown command %q", r.Command)
	}
}

// Response is the owner's reply.
//
// Session and Artifact are set once a recording has been stopped and written.
type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Session  string `json:"session,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

func errorResponse(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}
