// Package reply renders conversation results as platform reply payloads.
package reply

import (
	"strings"

	"pagebridge/pkg/conversation"
	"pagebridge/pkg/messenger"
)

// Custom payload keys understood by Transform. A payload renders as a button
// template when ContentTypeKey equals SelectorContentType:
//
//	{"contentType": "selector", "prompt": "Pick one", "choices": [{"title": "Pizza", "value": "ORDER_PIZZA"}]}
const (
	ContentTypeKey      = "contentType"
	SelectorContentType = "selector"
	PromptKey           = "prompt"
	ChoicesKey          = "choices"
	ChoiceTitleKey      = "title"
	ChoiceValueKey      = "value"

	DefaultPrompt = "Please choose:"
)

// Choice is one selectable option of a choice prompt.
type Choice struct {
	Title string
	Value string
}

// ChoicePrompt is a prompt with its options in backend order.
type ChoicePrompt struct {
	Prompt  string
	Choices []Choice
}

// Transform maps result to at most one payload for senderID. A choice prompt
// takes precedence over text; a result with neither yields nil.
func Transform(result conversation.Result, senderID string) *messenger.OutboundPayload {
	if strings.TrimSpace(senderID) == "" {
		return nil
	}

	if prompt, ok := FindChoicePrompt(result); ok {
		buttons := make([]messenger.Button, 0, messenger.MaxButtons)
		for _, choice := range prompt.Choices {
			if len(buttons) == messenger.MaxButtons {
				break
			}
			buttons = append(buttons, messenger.Button{
				Type:    messenger.ButtonPostback,
				Title:   choice.Title,
				Payload: choice.Value,
			})
		}
		payload := messenger.NewButtonPayload(senderID, prompt.Prompt, buttons)
		return &payload
	}

	if text, ok := firstText(result); ok {
		payload := messenger.NewTextPayload(senderID, text)
		return &payload
	}

	return nil
}

// FindChoicePrompt returns the first selector payload that has at least one usable choice.
func FindChoicePrompt(result conversation.Result) (ChoicePrompt, bool) {
	for _, payload := range result.Payloads {
		if prompt, ok := parseChoicePrompt(payload); ok {
			return prompt, true
		}
	}

	return ChoicePrompt{}, false
}

// parseChoicePrompt checks the discriminator before touching any other field
// and treats every unexpected shape as "not a choice prompt".
func parseChoicePrompt(payload map[string]any) (ChoicePrompt, bool) {
	if payload == nil {
		return ChoicePrompt{}, false
	}
	contentType, _ := payload[ContentTypeKey].(string)
	if contentType != SelectorContentType {
		return ChoicePrompt{}, false
	}

	rawChoices, ok := payload[ChoicesKey].([]any)
	if !ok {
		return ChoicePrompt{}, false
	}

	choices := make([]Choice, 0, len(rawChoices))
	for _, raw := range rawChoices {
		if choice, ok := parseChoice(raw); ok {
			choices = append(choices, choice)
		}
	}
	if len(choices) == 0 {
		return ChoicePrompt{}, false
	}

	prompt, _ := payload[PromptKey].(string)
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	return ChoicePrompt{Prompt: prompt, Choices: choices}, true
}

func parseChoice(raw any) (Choice, bool) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return Choice{}, false
	}

	title, _ := fields[ChoiceTitleKey].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return Choice{}, false
	}

	value, _ := fields[ChoiceValueKey].(string)
	if strings.TrimSpace(value) == "" {
		value = title
	}

	return Choice{Title: title, Value: value}, true
}

func firstText(result conversation.Result) (string, bool) {
	for _, text := range result.Texts {
		if strings.TrimSpace(text) != "" {
			return text, true
		}
	}

	return "", false
}
