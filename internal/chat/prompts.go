package chat

import "fmt"

const (
	// SentinelNoSearchMatch is the context when a freshly built index returns nothing.
	SentinelNoSearchMatch = "No relevant content found in the search results."
	// SentinelEmptyContext replaces a blank context before generation.
	SentinelEmptyContext = "No relevant content found for this query."

	// historical assistant turns that are never replayed to the model
	skipPrefix = "Context:"
	skipExact  = "No relevant content found."

	verdictRelevant = "RELEVANT"
)

const gateSystemPrompt = `You are a topic relevance checker. Your job is to determine if a user query is related to the provided context.

Respond with only one word:
- "RELEVANT" if the query is related to the context topic
- "IRRELEVANT" if the query is about a completely different topic

Be strict - only mark as RELEVANT if there's a clear topical connection.`

func gateUserPrompt(context, query string) string {
	return fmt.Sprintf("Context: %s...\n\nUser Query: %s\n\nIs this query relevant to the context?", context, query)
}

func generatorSystemPrompt(context string) string {
	return fmt.Sprintf(`You are a helpful AI assistant. Use the following context to answer the user's question accurately and comprehensively.

Context: %s

Instructions:
- Answer the user's question based on the provided context
- If the context contains relevant information, provide a detailed and helpful response
- Be informative and conversational in your tone
- If you notice the context might not be perfectly aligned with the question, still try to extract any relevant information that might be helpful
- Provide specific details, numbers, and facts when available in the context`, context)
}
