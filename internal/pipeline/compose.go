package pipeline

import "fmt"

const systemInstruction = "Use the following pieces of context to answer the user's question. " +
	"This is a private knowledge base. Do not use any external information. " +
	"If you don't know the answer from the context provided, just say that you don't know, " +
	"don't try to make up an answer."

// Compose merges the fixed system instruction, the context block, and the
// user question or task instruction into the final prompt string.
func Compose(context, question string) string {
	return fmt.Sprintf(`%s

CONTEXT:
---
%s
---

QUESTION:
%s

ANSWER:`, systemInstruction, context, question)
}
