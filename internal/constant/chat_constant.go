package constant

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"

	// ConversationTitleMaxLen bounds auto-generated titles taken from the
	// first user message.
	ConversationTitleMaxLen = 50
)
