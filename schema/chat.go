package schema

// Input is the default input schema of a chat agent
type Input struct {
	Base
	// ChatMessage is the chat message sent by the user to the assistant.
	ChatMessage string `json:"chat_message" jsonschema:"title=chat_message,description=The chat message sent by the user to the assistant." validate:"required"`
}

// NewInput returns a new Input
func NewInput(msg string) *Input {
	return &Input{
		ChatMessage: msg,
	}
}

// WithImageURLs attaches images to the input
func (i *Input) WithImageURLs(urls ...string) *Input {
	attachment := i.Attachment()
	if attachment == nil {
		attachment = new(Attachment)
	}
	attachment.ImageURLs = append(attachment.ImageURLs, urls...)
	i.SetAttachment(attachment)
	return i
}

func (i Input) String() string {
	return i.ChatMessage
}

// Output is the default output schema of a chat agent
type Output struct {
	Base
	// ChatMessage is the chat message exchanged between the user and the chat agent.
	ChatMessage string `json:"chat_message" jsonschema:"title=chat_message,description=The chat message exchanged between the user and the chat agent. This contains the markdown-enabled response generated by the chat agent." validate:"required"`
}

// NewOutput returns a new Output
func NewOutput(msg string) *Output {
	return &Output{
		ChatMessage: msg,
	}
}

func (o Output) String() string {
	return o.ChatMessage
}
