package chat

// ChatPromptCacheKey is where the fallback chat prompt id lives in
// the shared cache.
const ChatPromptCacheKey = "kyra:chat:prompt_id"

// ChatPromptPayload is the prompt created upstream for the
// prompt-apply repair path.
func ChatPromptPayload() map[string]any {
	return map[string]any{
		"name": "Kyra Chat",
		"prompt": "You are Kyra AI, a helpful assistant for this website. " +
			"Answer the user's request clearly and concisely.\n\n" +
			"User request:\n{{input}}",
		"categories": []string{"Chat"},
		"actionType": "replace",
		"metadata":   map[string]any{"categories": []string{"Chat"}, "action": "replace"},
	}
}
