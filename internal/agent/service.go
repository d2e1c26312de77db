package agent

import (
	"context"
	"fmt"

	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

// Service holds one runner per built-in agent so sessions survive across
// requests.
type Service struct {
	runners map[string]*Runner
}

func NewService(model Model, available *tools.Registry, cfg RunnerConfig) (*Service, error) {
	s := &Service{runners: make(map[string]*Runner)}
	for _, name := range Names() {
		a, _ := Lookup(name)
		runner, err := NewRunner(a, model, available, cfg)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		s.runners[name] = runner
	}
	return s, nil
}

func (s *Service) Runner(name string) (*Runner, error) {
	runner, ok := s.runners[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (available: %v)", name, Names())
	}
	return runner, nil
}

// Ask continues sessionID with the named agent, or starts a new session
// when sessionID is empty.
func (s *Service) Ask(ctx context.Context, agentName, sessionID, question string) (*Answer, error) {
	runner, err := s.Runner(agentName)
	if err != nil {
		return nil, err
	}
	session, err := runner.Session(sessionID)
	if err != nil {
		return nil, err
	}
	return runner.Ask(ctx, session, question)
}
