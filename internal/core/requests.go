package core

import "fmt"

// QuizRequest carries the parameters of a quiz generation request. The
// canonical params mapping feeds the idempotency key, so field names here
// are part of the dedup contract.
type QuizRequest struct {
	Difficulty    string   `json:"difficulty"`
	QuestionCount int      `json:"question_count"`
	QuestionTypes []string `json:"question_types"`
	Topics        []string `json:"topics,omitempty"`
}

func (r *QuizRequest) ApplyDefaults() {
	if r.Difficulty == "" {
		r.Difficulty = "medium"
	}
	if r.QuestionCount == 0 {
		r.QuestionCount = 5
	}
	if len(r.QuestionTypes) == 0 {
		r.QuestionTypes = []string{"multiple-choice"}
	}
}

func (r *QuizRequest) Validate() error {
	if r.QuestionCount < 1 || r.QuestionCount > 20 {
		return fmt.Errorf("%w: question_count must be between 1 and 20", ErrValidation)
	}
	return nil
}

func (r *QuizRequest) params() map[string]any {
	p := map[string]any{
		"difficulty":     r.Difficulty,
		"question_count": r.QuestionCount,
		"question_types": r.QuestionTypes,
	}
	if len(r.Topics) > 0 {
		p["topics"] = r.Topics
	}
	return p
}

// FlashcardRequest carries the parameters of a flashcard generation request.
type FlashcardRequest struct {
	Count int `json:"count"`
}

func (r *FlashcardRequest) ApplyDefaults() {
	if r.Count == 0 {
		r.Count = 10
	}
}

func (r *FlashcardRequest) Validate() error {
	if r.Count < 1 || r.Count > 50 {
		return fmt.Errorf("%w: count must be between 1 and 50", ErrValidation)
	}
	return nil
}

func (r *FlashcardRequest) params() map[string]any {
	return map[string]any{"count": r.Count}
}
