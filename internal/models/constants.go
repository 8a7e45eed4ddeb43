package models

const (
	ThinkTag         = `(?s)<think>.*?</think>`
	CodeFenceTag     = "(?s)^```(?:json)?\\s*(.*?)\\s*```$"
	ContextSeparator = "\n---\n"

	EmailRegex = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`
	PhoneRegex = `(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`
	DateRegex  = `\b(?:\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{4}-\d{2}-\d{2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.? \d{1,2}(?:st|nd|rd|th)?,? \d{4})\b`
)

// NoAnswerMessage is returned when nothing in the corpus is usable
const NoAnswerMessage = `I couldn't find a specific answer to your question in our knowledge base.

Here are some things you can try:
• Rephrase your question using different keywords
• Ask about a specific product, process or policy by name
• Contact your manager or the HR team for help with this topic`

var (
	AnswerSystemPrompt = `You are an internal knowledge-base assistant for company employees.
Answer the question using only the information provided in the context.
If the context does not contain the answer, say so plainly instead of guessing.
Be concise and keep any procedural steps, phone numbers, emails and deadlines exactly as written.`

	AnswerPromptTemplate = `Context:
%s

Question: %s`

	SummaryPromptTemplate = `<document>
%s
</document>
Summarize the document above for an internal knowledge base.
Respond with JSON only, in the form {"summary": "<2-4 sentence summary>", "keywords": ["<5 to 10 keywords>"]}.
`
)
