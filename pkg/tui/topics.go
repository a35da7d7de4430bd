package tui

const (
	TopicFeedEvents = "leadctl.events"
	TopicUIMessages = "leadctl.ui.msgs"
	TopicUIActions  = "leadctl.ui.actions"
)

const (
	DomainTypeFeedEvent    = "feed.event"
	DomainTypeConnection   = "feed.connection"
	DomainTypeActionLog    = "action.log"
	DomainTypeActionResult = "action.result"
)

const (
	UITypePipelineEvent = "tui.pipeline.event"
	UITypeConnection    = "tui.connection"
	UITypeEventAppend   = "tui.event.append"
	UITypeActionRequest = "tui.action.request"
	UITypeActionResult  = "tui.action.result"
)
