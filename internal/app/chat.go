package service

import (
	"context"
	"fmt"

	"github.com/okian/commskill/internal/adapters/coach"
)

// StartChat opens a coach conversation for the owner.
func (s *Service) StartChat(ctx context.Context, owner string) (coach.Conversation, error) {
	if s.coach == nil {
		return coach.Conversation{}, ErrCoachUnavailable
	}
	return s.coach.Start(ctx, owner), nil
}

// SendChat sends a message in one of the owner's conversations.
func (s *Service) SendChat(ctx context.Context, owner, conversationID, message string) (coach.Reply, error) {
	if s.coach == nil {
		return coach.Reply{}, ErrCoachUnavailable
	}
	reply, err := s.coach.Send(ctx, owner, conversationID, message)
	if err != nil {
		return coach.Reply{}, fmt.Errorf("chat: %w", err)
	}
	return reply, nil
}

// EndChat closes one of the owner's conversations.
func (s *Service) EndChat(ctx context.Context, owner, conversationID string) error {
	if s.coach == nil {
		return ErrCoachUnavailable
	}
	if err := s.coach.End(ctx, owner, conversationID); err != nil {
		return fmt.Errorf("end chat: %w", err)
	}
	return nil
}
