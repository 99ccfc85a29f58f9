package config

const (
	// Greeting seeds the transcript when the app starts
	Greeting = "Hello! I'm Lumina. How can I assist you today?"

	// ResetGreeting seeds the transcript after the conversation is cleared
	ResetGreeting = "Chat cleared. How can I help you now?"

	// ErrorReplyText is shown in place of a reply whenever a turn fails
	ErrorReplyText = "I'm sorry, I encountered an issue connecting to the service. Please try again."

	DefaultSystemInstruction = `You are Lumina, a sophisticated, witty, and highly intelligent AI assistant.
You provide concise, helpful, and accurate answers.
You use Markdown to format your responses effectively, using bolding for key terms and code blocks for technical content.
You have a slightly futuristic and optimistic personality.`
)

// GetSystemInstruction returns the system instruction a new session is scoped to
func GetSystemInstruction() string {
	return GetEnvOrDefault("SYSTEM_INSTRUCTION", DefaultSystemInstruction)
}
