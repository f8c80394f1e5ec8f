package openai

const scoringPrompt = `You grade how relevant each passage is to a search query over clinical
interview transcripts. Return ONLY valid JSON matching this schema:

{
  "scores": [
    {"index": 0, "score": 0.85}
  ]
}

Rules:
- "index" is the zero-based passage number shown in brackets.
- "score" is a number from 0.0 (irrelevant) to 1.0 (directly answers the query).
- Score every passage exactly once.
- Judge relevance by meaning, not word overlap; a passage describing the same
  symptom in different words is relevant.
- Do not include any text outside the JSON object; no trailing commas.

Example:
Input:
Query: headache complaints

Passages:
[0] I have a headache that won't go away.
[1] The weather has been nice this week.

Output:
{
  "scores": [
    {"index": 0, "score": 0.95},
    {"index": 1, "score": 0.05}
  ]
}`

const explanationPrompt = `You summarize search results over clinical interview transcripts.
Given a query and the passages retrieved for it, write 1-3 plain sentences
explaining what the passages say that is relevant to the query. Mention the
passage numbers in brackets when citing. Do not invent facts that are not in
the passages. If nothing is relevant, say so.`
