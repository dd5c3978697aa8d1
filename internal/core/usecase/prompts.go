package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

const (
	answerMaxTokens  = 1500
	summaryMaxTokens = 1000
	quizMaxTokens    = 2000
	llmTemperature   = 0.7

	summarySystemPrompt = "You are an expert teacher creating chapter summaries for NCTB textbooks."
	quizSystemPrompt    = "You are an expert teacher creating quizzes for NCTB textbooks. Always respond with valid JSON."
)

func joinContext(matches []domain.RetrievalMatch) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Chunk == nil {
			continue
		}
		parts = append(parts, m.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

func subjectOr(subject, fallback string) string {
	if subject == "" {
		return fallback
	}
	return subject
}

func answerSystemPrompt(filter domain.RetrievalFilter, context string) string {
	subject := subjectOr(filter.Subject, "their studies")
	if strings.TrimSpace(context) == "" {
		return fmt.Sprintf(`You are an expert AI tutor for Bangladeshi students following NCTB curriculum.
You are helping a Class %[1]s student with %[2]s.

No textbook content was found for this question.
Tell the student that this topic is not covered in their %[3]s book and ask whether they want an explanation from general knowledge.
Do not invent textbook content.`, filter.ClassLevel, subject, strings.TrimSpace("Class "+filter.ClassLevel+" "+filter.Subject))
	}

	return fmt.Sprintf(`You are an expert AI tutor for Bangladeshi students following NCTB curriculum.
You are helping a Class %[1]s student with %[2]s.

Use the following textbook content to answer the student's question:

%[3]s

Instructions:
1. Answer based ONLY on the provided textbook content
2. Provide step-by-step explanations
3. Use examples from the textbook when available
4. Explain in both Bengali and English when helpful
5. If the content doesn't fully answer the question, say so clearly
6. Keep explanations clear and age-appropriate for Class %[1]s students
`, filter.ClassLevel, subject, context)
}

func summaryUserPrompt(filter domain.RetrievalFilter, content string) string {
	return fmt.Sprintf(`Summarize the following chapter content from Class %[1]s %[2]s textbook.

Chapter: %[3]s

Content:
%[4]s

Provide a comprehensive summary that includes:
1. Key concepts and definitions
2. Important formulas or principles
3. Main topics covered
4. Real-world applications mentioned

Keep the summary clear and suitable for Class %[1]s students.`, filter.ClassLevel, filter.Subject, filter.Chapter, content)
}

func quizUserPrompt(filter domain.RetrievalFilter, content string, mcqCount, shortCount int) string {
	return fmt.Sprintf(`Create a quiz for Class %[1]s %[2]s students based on the following chapter content.

Chapter: %[3]s

Content:
%[4]s

Generate:
1. %[5]d multiple choice questions (MCQs) with 4 options each
2. %[6]d short answer questions

Format the response as a JSON object with the following structure:
{
    "mcqs": [
        {
            "question": "Question text",
            "options": ["A) Option 1", "B) Option 2", "C) Option 3", "D) Option 4"],
            "correct_answer": "A",
            "explanation": "Why this is correct"
        }
    ],
    "short_questions": [
        {
            "question": "Question text",
            "sample_answer": "Sample answer"
        }
    ]
}

Make sure questions are:
- Appropriate for Class %[1]s level
- Based on the provided content
- Cover different aspects of the chapter
- Include both conceptual and application-based questions`, filter.ClassLevel, filter.Subject, filter.Chapter, content, mcqCount, shortCount)
}
