// internal/oracle/prompt.go
package oracle

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// systemPrompt frames the model as a structured-output UI automation agent.
const systemPrompt = "You are a precise UI reasoning agent that outputs structured commands for automation."

// promptTemplate is the per-step user prompt. The strict 4-line output format
// is the wire contract ParseDecision depends on.
const promptTemplate = `You are a local UI automation reasoning agent that observes a live webpage
and decides the correct next interaction.

Goal:
%s

You are given BOTH:
1. A screenshot of the current browser page (attached, reference: %s)
2. The visible DOM text (below)

DOM text (trimmed):
%s

----------------------------------------------------------
Reasoning Guidelines:
----------------------------------------------------------
- Carefully analyze both the screenshot and the DOM text.
- Identify visible UI elements: buttons, modals, inputs, dropdowns, etc.
- If a modal or dialog like "New project" or "Create project" is open:
  examine whether mandatory fields (e.g., "Project name", "Labels", "Members") are empty,
  and type short, realistic placeholder text like "AI Test Project" or "Sample Label".
- Titles such as "All issues", "New view", or "Untitled" are often editable contenteditable
  elements, not real inputs. Click the title once, then use action=type to rename it.
- When a field has no label/placeholder/name (nameless contenteditable), set target to the
  exact visible text currently inside that field (e.g., "All issues", "New view"). Do not
  add directions or qualifiers.
- Do NOT click "Create", "Save", or "Submit" until required fields are filled.
- If you detect the same screen again with no progress, avoid repeating the same click;
  fill the required field first.
- If everything appears completed and confirmed, choose action=done.
- If the interface is loading, choose action=wait.
- Always move one logical step closer to the goal, avoiding redundant clicks.

----------------------------------------------------------
Output format (STRICT):
Return ONLY these 4 lines (no markdown, no explanations, no locations).
For target, output only the literal UI text of the element (e.g., "All issues"), with no extra words.

- action: [click/type/wait/done]
- target: [exact visible element text; no extra words]
- value: [if typing, the text to type; otherwise blank]
- reasoning: [short one-line reason]
`

// BuildPrompt assembles the per-step prompt from the goal and the bounded
// visible-text excerpt. maxChars bounds the excerpt; <= 0 keeps it whole.
func BuildPrompt(goal, visibleText, screenshotRef string, maxChars int) string {
	excerpt := visibleText
	if maxChars > 0 && len(excerpt) > maxChars {
		// Cut on a rune boundary so the excerpt stays valid UTF-8.
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	if screenshotRef == "" {
		screenshotRef = "unavailable"
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(goal), screenshotRef, excerpt)
}
