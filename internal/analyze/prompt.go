package analyze

import (
	"fmt"
	"strings"
)

const nerInstructions = `You are an expert military doctrine analyst specializing in Named Entity Recognition (NER).
Your task is to identify occurrences of specific military tactical tasks (e.g., "SEIZE", "OCCUPY", "ATTACK BY FIRE", "CONDUCT RECONNAISSANCE") within the provided text.
These tasks are typically verbs or short verb phrases describing a specific military action.

For each identified potential tactical task, provide:
1. The exact task name as you identify it (e.g., "SEIZE", "OCCUPY").
2. The starting character index of the task mention in the input text.
3. The ending character index of the task mention in the input text.

Output the results as a JSON list of objects. Each object must have these keys:
- "task_name": The recognized tactical task name.
- "start_index": The starting character index of the mention.
- "end_index": The ending character index of the mention.

If no potential tactical tasks are found in the text, return an empty JSON list: [].

Example:
Input Text: "The platoon will SEIZE the bridge and then OCCUPY Hill 405. Later, they will CONDUCT RECONNAISSANCE of the northern route."
Output:
[
  {"task_name": "SEIZE", "start_index": 17, "end_index": 22},
  {"task_name": "OCCUPY", "start_index": 44, "end_index": 50},
  {"task_name": "CONDUCT RECONNAISSANCE", "start_index": 78, "end_index": 100}
]

Respond with ONLY the JSON list, no other text.`

// BuildNERPrompt assembles the recognition prompt for one text snapshot.
func BuildNERPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(nerInstructions)
	sb.WriteString("\n\nInput Text:\n---\n")
	sb.WriteString(text)
	sb.WriteString("\n---\n")
	return sb.String()
}

// extractionInstructions asks for catalog entries from one page of the
// reference manual; used by the taskload command.
const extractionInstructions = `You are indexing tactical task definitions from a US Army field manual page.
Identify every tactical task the page defines (a named task followed by its doctrinal definition).

Output a JSON list of objects with these keys:
- "name": the task name in upper case (e.g., "SEIZE").
- "definition": the full doctrinal definition sentence(s).
- "page_number": the page label as printed (e.g., "B-44").
- "related_figures": list of figure references mentioned (e.g., ["Figure B-23"]), or [].

Only include tasks the page actually defines; ignore mere mentions.
If the page defines no tasks, return [].
Respond with ONLY the JSON list, no other text.`

// BuildExtractionPrompt assembles the catalog-extraction prompt for one
// manual page.
func BuildExtractionPrompt(pageLabel, pageText string) string {
	var sb strings.Builder
	sb.WriteString(extractionInstructions)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("Page: %s\n", pageLabel))
	sb.WriteString("---\n")
	sb.WriteString(pageText)
	return sb.String()
}
