package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZhanWeiKai/eatwhat/internal/core/contracts"
)

// fallbackReply is what the user sees when the upstream model fails.
const fallbackReply = "抱歉，我现在无法回答，请稍后再试。"

// ChatService bridges the AI completion call and the per-user event
// stream. Upstream failures surface as a terminal error event on the
// stream, never as a transport-level error.
type ChatService struct {
	log    *slog.Logger
	ai     contracts.Completer
	stream contracts.StreamServer
}

func NewChatService(log *slog.Logger, ai contracts.Completer, stream contracts.StreamServer) *ChatService {
	return &ChatService{
		log:    log,
		ai:     ai,
		stream: stream,
	}
}

// Chat returns the complete reply in one piece.
func (s *ChatService) Chat(ctx context.Context, message string) (string, error) {
	reply, err := s.ai.Chat(ctx, message)
	if err != nil {
		s.log.ErrorContext(ctx, "chat - completion failed", "err", err)
		return fallbackReply, err
	}
	return reply, nil
}

// ChatStream drives one streamed reply for userID: every token becomes
// an add event, then the full reply closes the stream with finish. Run
// from a goroutine detached from the request that started it.
func (s *ChatService) ChatStream(ctx context.Context, userID, message string) {
	ctx, span := tracer.Start(ctx, "ChatService.ChatStream", trace.WithAttributes(
		attribute.String("user_id", userID),
	))
	defer span.End()

	full, err := s.ai.ChatStream(ctx, message, func(token string) error {
		s.stream.Append(ctx, userID, token)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream stream failed")
		s.log.ErrorContext(ctx, "chat - stream failed", "user_id", userID, "err", err)
		s.stream.Fail(ctx, userID, fallbackReply)
		return
	}
	span.SetAttributes(attribute.Int("reply_length", len(full)))
	s.log.InfoContext(ctx, "chat - stream complete", "user_id", userID, "reply_length", len(full))
	s.stream.Finish(ctx, userID, full)
}
