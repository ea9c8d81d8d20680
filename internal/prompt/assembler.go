// Package prompt builds the ordered message list sent to a backend.
package prompt

import (
	"fmt"

	"github.com/reddishJade/sports-exem/internal/domain"
)

const (
	basePrompt = "You are a professional sports and fitness AI assistant who provides expert " +
		"guidance and advice on fitness and exercise."
	studentPrompt = " You are talking with a student. Give fitness and fitness-test guidance " +
		"suitable for students."
	studentBMIPrompt = " The student's BMI is about %.1f."
	parentPrompt     = " You are talking with a parent. Give advice on guiding a child's physical " +
		"exercise and on how parents can better follow their child's healthy development."
	adminPrompt = " You are talking with an administrator. Give professional advice on physical " +
		"education, fitness program management and analysis of student fitness test data."
	defaultPrompt = " Give professional advice on fitness, nutrition and physical exercise."

	// MemoryHeader introduces the memory summary in the system prompt.
	MemoryHeader = "\n\nUser's historical memory summary:\n"
)

// SystemPrompt returns the role-specific system prompt for the caller.
func SystemPrompt(user domain.UserContext) string {
	switch user.UserType {
	case domain.UserTypeStudent:
		p := basePrompt + studentPrompt
		if user.HasBodyMetrics() {
			p += fmt.Sprintf(studentBMIPrompt, BMI(user.HeightCm, user.WeightKg))
		}
		return p
	case domain.UserTypeParent:
		return basePrompt + parentPrompt
	case domain.UserTypeAdmin:
		return basePrompt + adminPrompt
	default:
		return basePrompt + defaultPrompt
	}
}

// BMI computes the body mass index from height in centimetres and weight in kilograms.
func BMI(heightCm, weightKg float64) float64 {
	m := heightCm / 100
	return weightKg / (m * m)
}

// Assemble returns the system message followed by at most window of the
// recent messages, oldest first. recent must already be ordered oldest first.
// The memory section is added only when the conversation uses memory and has
// a summary. Messages with empty content are placeholders and are skipped.
func Assemble(conv *domain.Conversation, user domain.UserContext, recent []domain.Message, window int) []domain.ChatMessage {
	system := SystemPrompt(user)
	if conv.UseMemory && conv.MemorySummary != "" {
		system += MemoryHeader + conv.MemorySummary
	}

	if window >= 0 && len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	out := make([]domain.ChatMessage, 0, len(recent)+1)
	out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	for _, m := range recent {
		if m.Content == "" {
			continue
		}
		out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
