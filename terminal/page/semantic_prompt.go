package page

// The semantic prompt type. This is used when tracking a line type and
// requires integration with the shell. By default, we mark a line as
// "unknown" meaning we don't know what type it is.
//
// See: https://gitlab.freedesktop.org/Per_Bothner/specifications/blob/master/proposals/semantic-prompts.md
type SemanticPromptType int

const (
	// Unknown must be the zero value so fresh rows carry it.
	SemanticPromptTypeUnknown SemanticPromptType = iota
	SemanticPromptTypePrompt
	SemanticPromptTypeContinuation
	SemanticPromptTypeInput
	SemanticPromptTypeOutput
)

// Return trues if this is a prompt or input line type.
func (p SemanticPromptType) PromptOrInput() bool {
	return p == SemanticPromptTypePrompt ||
		p == SemanticPromptTypeContinuation ||
		p == SemanticPromptTypeInput
}
