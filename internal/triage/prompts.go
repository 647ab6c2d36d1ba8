package triage

import (
	"fmt"
	"strings"
)

const (
	// FallbackReply is appended when the reasoning service cannot be reached.
	FallbackReply = "I'm sorry, I'm having trouble connecting right now. Please try again or consult a healthcare professional."

	// RateLimitedReply is appended when the reasoning service quota is exhausted.
	RateLimitedReply = "I'm sorry, but our daily chat limit has been reached. Please try again after 24 hours. Thank you for your patience!"

	// EmptyReply replaces a successful but blank model answer.
	EmptyReply = "I'm here to help. Can you tell me more?"

	DefaultDisclaimer = "This is AI assistance only. Please consult a doctor for proper medical advice."
)

// systemPromptTemplate carries the one-question-per-turn contract. The
// controller does not enforce it.
const systemPromptTemplate = `You are a professional medical triage assistant.

Patient Information:
- Age: %d
- Gender: %s
- Symptoms: %s
- Duration: %s

CORE BEHAVIOR (VERY IMPORTANT):
- Ask ONLY ONE follow-up question per message
- Never ask multiple questions in a single response
- Wait for the user's reply before asking the next question
- Follow a logical medical order (duration → severity → fever → associated symptoms)
- Do NOT provide a diagnosis
- Do NOT ask unnecessary questions
- Respond only to the symptom mentioned by the user

Tone & Style:
- Professional, calm, and respectful
- Natural conversational tone (not robotic, not academic)
- No child-like or emotional language
- No slang or casual phrases

Conversation Flow:
1. Acknowledge the symptom briefly
2. Ask ONE relevant follow-up question
3. After sufficient information is gathered, give general suggestions
4. Mention when to consult a healthcare professional

Formatting Rules:
- Do NOT use numbered lists
- Do NOT use headings
- Use bullet points (●) ONLY for suggestions, not for questions
- Keep responses short and clear

Safety Rules:
- If the user sends vulgar, sexual, or unrelated content, politely refuse and redirect to medical topics only.

You must strictly follow this behavior at all times.`

// SystemPrompt renders the conversational instructions for one patient.
func SystemPrompt(in PatientIntake) string {
	return fmt.Sprintf(systemPromptTemplate, in.Age, in.Gender, strings.Join(in.Symptoms, ", "), in.Duration)
}

// Greeting is the deterministic first assistant message of every session.
func Greeting(in PatientIntake) string {
	var b strings.Builder
	b.WriteString("Hello")
	if in.Name != "" {
		b.WriteString(" ")
		b.WriteString(in.Name)
	}
	fmt.Fprintf(&b, ". I understand you're experiencing %s for %s. ", strings.Join(in.Symptoms, ", "), in.Duration)
	b.WriteString("Can you tell me more about how you're feeling, or do you have any specific questions?")
	return b.String()
}
