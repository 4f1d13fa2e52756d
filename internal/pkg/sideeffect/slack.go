package sideeffect

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackSink posts dead letters to an ops channel and logs them as well.
type SlackSink struct {
	client    *slack.Client
	channelID string
	app       string
}

func NewSlackSink(token, channelID, app string) *SlackSink {
	return &SlackSink{
		client:    slack.New(token),
		channelID: channelID,
		app:       app,
	}
}

func (s *SlackSink) DeadLetter(ctx context.Context, name string, err error) error {
	_ = LogSink{}.DeadLetter(ctx, name, err)

	message := fmt.Sprintf(":rotating_light: [%s] side effect `%s` failed after retries: %s", s.app, name, err.Error())
	_, _, postErr := s.client.PostMessageContext(ctx, s.channelID,
		slack.MsgOptionText(message, false),
	)
	if postErr != nil {
		return fmt.Errorf("failed to post message to Slack: %w", postErr)
	}
	return nil
}
