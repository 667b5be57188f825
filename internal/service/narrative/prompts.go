package narrative

import (
	"fmt"
	"strings"
)

const (
	nameSystemPrompt        = "You are a helpful assistant for giving a name of a character from historical events."
	personalitySystemPrompt = "You are a helpful assistant for giving a short description of a character's personality from historical events."
	storySystemPrompt       = "You are a helpful assistant who retells a historical event in the perspective of a given character with a given personality."
	titleSystemPrompt       = "You are a helpful assistant who gives a story a title."

	storyBeginsMarker = "You are going to begin telling the story of "
	storyToldMarker   = "You already told the story of "
)

// Generation parameters per call.
const (
	nameMaxTokens        = 10
	personalityMaxTokens = 50
	storyMaxTokens       = 200
	titleMaxTokens       = 20
	answerMaxTokens      = 200
	creativeTemperature  = 0.9
)

func buildNamePrompt(event string, exclude []string) string {
	var builder strings.Builder
	builder.WriteString("Give me only the name of one major character who can be a person, inanimate object, etc. from the historical event: ")
	builder.WriteString(event)
	builder.WriteString(".")
	if len(exclude) > 0 {
		builder.WriteString(" The character must not be any of: ")
		builder.WriteString(strings.Join(exclude, ", "))
		builder.WriteString(".")
	}
	builder.WriteString(" Reply with the name only.")
	return builder.String()
}

func buildPersonalityPrompt(name, event string) string {
	return fmt.Sprintf("Describe the personality of: %s from the historical event: %s in 30 words or less in a first person perspective", name, event)
}

func buildStoryPrompt(name, personality, event, history string, next int) string {
	marker := storyBeginsMarker
	if next > 1 {
		marker = storyToldMarker
	}

	return fmt.Sprintf(`You are a storyteller with a %s personality, narrating the events of %s.
%s%s.
The story so far:

"%s"

Continue the narrative from this point, focusing on the perspective of %s, and ensure the continuation is unique and at a different point further in time in the event of %s without repeating any previous content or phrases. Try a different introduction besides "%s..." Limit your response to 150 words.`,
		personality,
		event,
		marker,
		event,
		history,
		name,
		event,
		strings.TrimSpace(storyToldMarker),
	)
}

func buildTitlePrompt(story, event string) string {
	return fmt.Sprintf("Based on this story: %s, which is related to the historical event: %s, give it a short title.", story, event)
}

func buildAnswerPrompt(name, personality, event, history, input string) string {
	return fmt.Sprintf(`Answer the user's prompt: %s
You are a storyteller with a %s personality, who was narrating the events of %s but the user asked a question for you to answer.
The history of the conversation leading up to the question is:
"%s"

Answer the user's question, focusing on the perspective of %s. Limit your response to 150 words.`,
		input,
		personality,
		event,
		history,
		name,
	)
}

const nameDecoration = "\"'`“”‘’* "

// normalizeName strips the decoration models like to put around a bare name.
func normalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	name = strings.TrimLeft(name, nameDecoration)
	name = strings.TrimRight(name, nameDecoration+".")
	return strings.TrimSpace(name)
}

// isExcluded compares case-insensitively against the names already used for the event.
func isExcluded(name string, exclude []string) bool {
	for _, existing := range exclude {
		if strings.EqualFold(strings.TrimSpace(existing), name) {
			return true
		}
	}
	return false
}
