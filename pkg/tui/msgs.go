package tui

import (
	"time"

	"github.com/go-go-golems/leadctl/pkg/protocol"
)

type PipelineEventMsg struct {
	At    time.Time
	Event protocol.Event
}

type ConnectionMsg struct {
	Change ConnectionChanged
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

type ActionRequestMsg struct {
	Request ActionRequest
}

type ActionResultMsg struct {
	Result ActionResult
}
