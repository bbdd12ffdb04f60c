package usecase

// System prompts for the pipeline's generation calls.

const segmentSummarySystem = `You are a professional text summarization expert. Summarize the given transcript excerpt concisely.
Requirements:
1. Capture the main content in 1-2 sentences
2. Preserve key information and viewpoints
3. Keep the language clear and direct`

const keywordsSystem = `You are a keyword extraction expert. Extract the 3-5 most important keywords from the given text.
Requirements:
1. Output only the keywords, separated by commas
2. Keywords should be nouns or technical terms
3. Order them by importance`

const overallSummarySystem = `You are a professional content summarization expert. Based on the per-segment summaries, produce one overall synthesis.
Requirements:
1. 200-300 words
2. Cover the main themes and viewpoints of the whole text
3. Keep the logic clear and the structure complete
4. Highlight the most important insights and conclusions`

const topicsSystem = `You are a topic analysis expert. Analyze the main topics of the given text.
Requirements:
1. Identify 3-5 main topics
2. Express each topic as a short phrase
3. Order them by importance
4. Output only the topic list, one per line`

const deepAnalysisSystem = `You are a professional content analyst. Follow the given guidelines strictly.`

// overallPendingPlaceholder stands in for the overall summary in partial
// results; resuming the task replaces it once all segments are done.
const overallPendingPlaceholder = "overall summary not yet generated; resume the task to finish it"
