package editor

// Substitution is the result of applying an accepted enhancement.
type Substitution struct {
	NewContent string `json:"new_content"`
	NewCaret   int    `json:"new_caret"`
}

// Substitute replaces content[sel.Start:sel.End] with enhancedText and
// places the caret at the end of the inserted text. The selection must be
// valid against this exact content snapshot; staleness is the caller's
// responsibility to detect via content versions before calling.
func Substitute(content string, sel Selection, enhancedText string) (Substitution, error) {
	if err := sel.Validate(len(content)); err != nil {
		return Substitution{}, err
	}
	return Substitution{
		NewContent: spliceText(content, sel.Start, sel.End, enhancedText),
		NewCaret:   sel.Start + len(enhancedText),
	}, nil
}
