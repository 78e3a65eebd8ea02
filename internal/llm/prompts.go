package llm

import "fmt"

// NoAnswerMessage is returned verbatim when retrieval produces no
// relevant chunks, instead of calling the model at all.
const NoAnswerMessage = "I couldn't find relevant information in the uploaded documents to answer your question."

// GroundedSystemPrompt constrains the model to answer only from the
// retrieved document context.
const GroundedSystemPrompt = `You are a helpful AI assistant that answers questions based on provided context documents.

Instructions:
- Use ONLY the information from the provided context to answer questions
- If the context doesn't contain relevant information, say "` + NoAnswerMessage + `"
- Be concise and accurate
- Cite specific information when possible
- Don't make up information not present in the context`

// BuildGroundedRequest assembles the completion request for answering
// query from the given retrieved context.
func BuildGroundedRequest(query, context string) CompletionRequest {
	userPrompt := fmt.Sprintf(`Context from documents:
%s

Question: %s

Answer based on the context above:`, context, query)

	return CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: GroundedSystemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		MaxTokens:   1000,
		Temperature: 0.1,
	}
}
