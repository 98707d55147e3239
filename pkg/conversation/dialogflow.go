package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cx "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"google.golang.org/api/option"

	"pagebridge/pkg/config"
)

// Dialogflow is a Backend over the Dialogflow CX Sessions API.
type Dialogflow struct {
	sessions     *cx.SessionsClient
	languageCode string
}

// NewDialogflow dials the regional Sessions endpoint for cfg.Location.
func NewDialogflow(ctx context.Context, cfg config.DialogflowConfig) (*Dialogflow, error) {
	opts := []option.ClientOption{}
	if endpoint := regionalEndpoint(cfg); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if credentials := strings.TrimSpace(cfg.CredentialsFile); credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	sessions, err := cx.NewSessionsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create dialogflow sessions client: %w", err)
	}

	languageCode := strings.TrimSpace(cfg.LanguageCode)
	if languageCode == "" {
		languageCode = config.DefaultLanguageCode
	}

	return &Dialogflow{sessions: sessions, languageCode: languageCode}, nil
}

func (d *Dialogflow) DetectIntent(ctx context.Context, session string, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, errors.New("text is required")
	}

	resp, err := d.sessions.DetectIntent(ctx, &cxpb.DetectIntentRequest{
		Session: session,
		QueryInput: &cxpb.QueryInput{
			Input:        &cxpb.QueryInput_Text{Text: &cxpb.TextInput{Text: text}},
			LanguageCode: d.languageCode,
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("detect intent: %w", err)
	}

	return resultFromMessages(resp.GetQueryResult().GetResponseMessages()), nil
}

func (d *Dialogflow) Close() error {
	return d.sessions.Close()
}

// resultFromMessages flattens response messages into text candidates and custom payloads.
func resultFromMessages(messages []*cxpb.ResponseMessage) Result {
	var result Result
	for _, message := range messages {
		if text := message.GetText(); text != nil {
			for _, candidate := range text.GetText() {
				if strings.TrimSpace(candidate) != "" {
					result.Texts = append(result.Texts, candidate)
				}
			}
		}
		if payload := message.GetPayload(); payload != nil {
			result.Payloads = append(result.Payloads, payload.AsMap())
		}
	}

	return result
}

// regionalEndpoint returns the explicit endpoint or the regional one for non-global agents.
func regionalEndpoint(cfg config.DialogflowConfig) string {
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		return endpoint
	}

	location := strings.TrimSpace(cfg.Location)
	if location == "" || location == config.DefaultLocation {
		return ""
	}

	return location + "-dialogflow.googleapis.com:443"
}
