package rpc

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/napolitain/rts-economy/internal/converter"
	"github.com/napolitain/rts-economy/internal/economy"
	"github.com/napolitain/rts-economy/internal/models"
)

// session is one match. Its manager is driven by one call at a time.
type session struct {
	mu      sync.Mutex
	manager *economy.Manager
}

// Server implements EconomyServer with one manager per session
type Server struct {
	tuning models.Tuning
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates a server handing t to every new session
func NewServer(t models.Tuning, logger zerolog.Logger) *Server {
	return &Server{
		tuning:   t,
		logger:   logger.With().Str("component", "EconomyService").Logger(),
		sessions: make(map[string]*session),
	}
}

// Sessions returns the number of live sessions
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) session(id string) (string, *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{manager: economy.NewManager(s.tuning, economy.WithLogger(s.logger.With().Str("session", id).Logger()))}
		s.sessions[id] = sess
		s.logger.Info().Str("session", id).Msg("session started")
	}
	return id, sess
}

// Decide implements EconomyServer
func (s *Server) Decide(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	req, err := converter.StructToRequest(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decide: %v", err)
	}

	id, sess := s.session(req.Session)
	sess.mu.Lock()
	d := sess.manager.Update(req.World, req.PlanQueues(), req.Events)
	targets := sess.manager.Targets()
	sess.mu.Unlock()

	s.logger.Debug().
		Str("session", id).
		Int("tick", d.Tick).
		Int("commands", len(d.Commands)).
		Int("plans", len(d.Plans)).
		Msg("decided")
	return converter.ResponseToStruct(converter.Response{Session: id, Decision: d, Targets: targets}), nil
}

// EndSession implements EconomyServer
func (s *Server) EndSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := in.GetFields()["session"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "end session: missing session")
	}
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return nil, status.Errorf(codes.NotFound, "end session: unknown session %q", id)
	}
	s.logger.Info().Str("session", id).Msg("session ended")
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session": structpb.NewStringValue(id),
	}}, nil
}
