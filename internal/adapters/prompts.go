package adapters

// Prompts for the two-pass summarization: a per-topic bullet summary over
// the transcript, then a one-paragraph executive summary over the bullets.

const bulletSummaryPrompt = `What follows is a diarized transcript of a meeting between a number of people in the electric utility
industry in the United States. Topics discussed will be related to that or related to project management and software
development activities to support the electric utility.

Your output should be in proper markdown format with the following:
1. Use ** for bold text (e.g., **important point**)
2. Use ## for topic headings (level 2 headers) - DO NOT use numbered sections or ### headers
3. Use - for bulleted lists (always use a dash followed by a space)
4. Use blank lines between paragraphs
5. Never use numbered lists for bullet points
6. DO NOT include any numbering (1.0.1, 2.1, etc.) in headers or sections
7. DO NOT create subsections under topic headers

You must include the following sections:
1. For each key topic discussed: a descriptive name as a level 2 header (##), followed by a bulleted list of key points using dashes (-), with action items highlighted in bold.

Do not include anything else except for the above. No extraneous words, HTML formatting, or numbered sections.

`

const execSummaryPrompt = `What follows is a list of key topics discussed in a meeting between a number of people in the
electric utility industry. The topic will be related to this, or to project management and software development
activities to support the electric utility.

Your output MUST BE EXACTLY ONE PARAGRAPH that summarizes the meeting.
- Use plain text with markdown formatting (use ** for bold, not HTML tags)
- Write as a single continuous paragraph with no line breaks
- Focus only on the most critical information
- Keep your summary concise (under 150 words)
- Do not include bullet points, numbered lists, or multiple paragraphs
- No extraneous words or HTML formatting at all

Write only the executive summary paragraph and nothing else.

`
