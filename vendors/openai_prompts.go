package vendors

const summarySystemPrompt = `You summarize web articles and documents for a personal archive.
Write 3-5 sentences that capture what the content is about and its key points.
Plain prose, no headings, no bullet points, no preamble.`

const tagsSystemPrompt = `You are an expert knowledge organizer. Generate 5-10 tags that help classify the content.
Tag format: lowercase with spaces (e.g., "open source"), but honor conventions for proper nouns (e.g., "iOS", "JavaScript").
No hashtags or numbering.
Respond with JSON in format: {"tags": ["tag1", "tag2", ...]}`

const slugSystemPrompt = `You name files in a personal archive based on their content.
Produce a short filesystem-friendly slug (3-6 words, lowercase, hyphen-separated, ascii only)
and a human-readable title (under 80 characters).
Respond with JSON in format: {"slug": "...", "title": "..."}`
