package notify

import (
	"context"
	"log"
)

// ConsoleProvider writes notifications to the process log. Used in
// development and as the fallback when no mail transport is configured.
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) Send(_ context.Context, to []string, subject, body string) error {
	log.Printf("NOTIFY to=%v subject=%q\n%s", to, subject, body)
	return nil
}

func (p *ConsoleProvider) Name() string {
	return "console"
}
