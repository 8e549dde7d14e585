package llm

import "fmt"

const summarySystem = "You are a helpful assistant that creates detailed, informative summaries of historical documents. " +
	"Focus on who is communicating with whom, the nature of their relationship, and what they are discussing."

const peopleSystem = "You are a helpful assistant that extracts person names from text. Return only valid JSON."

func summaryPrompt(sourceLanguage, text string) string {
	if sourceLanguage == "" {
		sourceLanguage = "unknown"
	}
	return fmt.Sprintf(`Please provide a detailed summary of the following text. The text appears to be from a %s document that has been translated to English.

Your summary should include:
1. WHO: Who is writing to whom (sender and recipient)
2. NATURE: What type of document this is (personal letter, business correspondence, official document, etc.)
3. TOPICS: What specific topics, subjects, or themes are discussed
4. CONTEXT: Any important dates, locations, events, or circumstances mentioned
5. RELATIONSHIP: The relationship between the people involved (family, friends, business associates, etc.)

Format your response as a clear, descriptive paragraph that would help someone quickly understand the document's content and significance.

Text to summarize:
%s

Summary:`, sourceLanguage, text)
}

func peoplePrompt(text string) string {
	return fmt.Sprintf(`Extract all person names from the following text. Return them as a JSON list where each person has:
- "name": the full name as it appears in the text
- "context": brief context about who they are or their role

Text:
%s

Return only valid JSON, no other text.`, text)
}
