package email

import (
	"context"
	"log"
)

// ConsoleService writes messages to the process log instead of sending
// them. Default backend in offline mode.
type ConsoleService struct {
	subjPrefix string
}

func NewConsoleService(appName string) *ConsoleService {
	return &ConsoleService{subjPrefix: "[" + appName + "] "}
}

func (s *ConsoleService) Send(_ context.Context, m Message) error {
	log.Printf("email to=%s subject=%q\n%s", m.To, s.subjPrefix+m.Subject, m.Body)
	return nil
}
