// Package prompt renders the instruction templates sent to the LLM.
package prompt

import "fmt"

// Questions returns the prompt asking for comprehension questions about document.
func Questions(document string) string {
	return fmt.Sprintf(questionTemplate, document)
}

// Answers returns the prompt asking for answers to questions, grounded in document.
func Answers(document, questions string) string {
	return fmt.Sprintf(answerTemplate, document, questions)
}
