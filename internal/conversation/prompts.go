// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package conversation

import "fmt"

// =============================================================================
// PROMPTS
// =============================================================================

// systemInstruction frames every conversation.
const systemInstruction = `You are noteq, a personal notes assistant. You answer questions about the user's OneNote notes.
When note content is provided, ground your answer in it and cite which notebook and section each note came from.
Be concise and direct. If you are not sure, say so rather than inventing note content.`

// groundedAnswerPrompt asks for an answer based on retrieved pages. The
// context block is the encoded search payload, which already carries titles,
// notebook/section attribution, and content excerpts.
func groundedAnswerPrompt(query, context string) string {
	return fmt.Sprintf(`The user asked: %q

These notes were found:
%s

Answer the question using only these notes. Mention each note you drew from by title, with its notebook and section.`, query, context)
}

// noResultsPrompt produces an encouraging answer when nothing matched. It
// must suggest alternatives, never read as a raw failure.
func noResultsPrompt(query string) string {
	return fmt.Sprintf(`No notes matched the search for %q.

Tell the user kindly that nothing was found, and encourage them: suggest rephrasing with different keywords, trying a broader term, or checking which notebook the note might be in. Do not apologize excessively and do not invent note content.`, query)
}

// restatementPrompt turns a listing (recent pages or notebooks) into a short
// natural-language summary.
func restatementPrompt(query, listing string) string {
	return fmt.Sprintf(`The user asked: %q

Here is the listing that was retrieved:
%s

Restate this listing for the user in a brief, friendly way. Keep every item.`, query, listing)
}
