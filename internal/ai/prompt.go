package ai

import "fmt"

const documentPromptTemplate = `You are a helpful assistant that answers questions based on the provided document context.

Document Context:
%s

Question: %s

Please provide a clear, concise answer based only on the information in the document.`

// DocumentPrompt renders the question-over-document prompt.
func DocumentPrompt(documentContext, question string) string {
	return fmt.Sprintf(documentPromptTemplate, documentContext, question)
}
