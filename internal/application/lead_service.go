package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/persistence"
	"github.com/example/growth-crm/internal/pipeline"
)

// LeadRepository captures the persistence operations needed by the lead service.
type LeadRepository interface {
	CreateLead(ctx context.Context, lead Lead) (Lead, error)
	GetLead(ctx context.Context, id string) (Lead, error)
	ListLeads(ctx context.Context, filter LeadRepositoryFilter) ([]Lead, error)
	UpdateLeadStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	DeleteLead(ctx context.Context, id string) error
}

// LeadRepositoryFilter narrows queries issued to the lead repository.
type LeadRepositoryFilter struct {
	Status string
	Query  string
}

// LeadService validates leads and applies pipeline moves.
type LeadService struct {
	leads       LeadRepository
	registry    *pipeline.Registry
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewLeadService constructs a lead service with the provided dependencies.
func NewLeadService(leads LeadRepository, registry *pipeline.Registry, idGenerator func() string, now func() time.Time) *LeadService {
	return NewLeadServiceWithLogger(leads, registry, idGenerator, now, nil)
}

// NewLeadServiceWithLogger constructs a lead service with a specified logger.
// A nil registry selects the built-in vocabularies.
func NewLeadServiceWithLogger(leads LeadRepository, registry *pipeline.Registry, idGenerator func() string, now func() time.Time, logger *slog.Logger) *LeadService {
	if registry == nil {
		registry = pipeline.DefaultRegistry()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &LeadService{
		leads:       leads,
		registry:    registry,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *LeadService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LeadService", operation, attrs...)
}

// CreateLead validates input and stores a new lead.
func (s *LeadService) CreateLead(ctx context.Context, input LeadInput) (lead Lead, err error) {
	if s == nil {
		err = fmt.Errorf("LeadService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateLead")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create lead", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("lead_id", lead.ID, "status", lead.Status).InfoContext(ctx, "lead created")
	}()

	normalized, vErr := s.validateLeadInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	lead = Lead{
		ID:        s.idGenerator(),
		Name:      normalized.Name,
		Email:     normalized.Email,
		Phone:     normalized.Phone,
		Company:   normalized.Company,
		Source:    normalized.Source,
		Status:    normalized.Status,
		Notes:     normalized.Notes,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if s.leads == nil {
		return
	}

	var persisted Lead
	persisted, err = s.leads.CreateLead(ctx, lead)
	if err != nil {
		err = mapLeadRepoError(err)
		return
	}
	lead = persisted
	return
}

// GetLead returns a single lead.
func (s *LeadService) GetLead(ctx context.Context, id string) (Lead, error) {
	if s == nil {
		return Lead{}, fmt.Errorf("LeadService is nil")
	}
	if s.leads == nil {
		return Lead{}, fmt.Errorf("lead repository not configured")
	}
	lead, err := s.leads.GetLead(ctx, id)
	if err != nil {
		return Lead{}, mapLeadRepoError(err)
	}
	return lead, nil
}

// ListLeads returns leads in creation order.
func (s *LeadService) ListLeads(ctx context.Context, params ListLeadsParams) ([]Lead, error) {
	if s == nil {
		return nil, fmt.Errorf("LeadService is nil")
	}
	if s.leads == nil {
		return nil, fmt.Errorf("lead repository not configured")
	}

	status := strings.TrimSpace(params.Status)
	if status != "" && !s.registry.Storage().Stages().Contains(status) {
		return nil, fieldError("status", fmt.Sprintf("unknown status %q", status))
	}

	leads, err := s.leads.ListLeads(ctx, LeadRepositoryFilter{Status: status, Query: strings.TrimSpace(params.Query)})
	if err != nil {
		return nil, mapLeadRepoError(err)
	}
	return leads, nil
}

// DeleteLead removes a lead and its bookings.
func (s *LeadService) DeleteLead(ctx context.Context, id string) (err error) {
	if s == nil {
		return fmt.Errorf("LeadService is nil")
	}
	if s.leads == nil {
		return fmt.Errorf("lead repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteLead", "lead_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete lead", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "lead deleted")
	}()

	if err = s.leads.DeleteLead(ctx, id); err != nil {
		err = mapLeadRepoError(err)
	}
	return
}

// Board groups every lead into the columns of the requested vocabulary.
// Stored statuses that are not storage stages end up in Unrecognized.
func (s *LeadService) Board(ctx context.Context, vocabulary string) (LeadBoard, error) {
	if s == nil {
		return LeadBoard{}, fmt.Errorf("LeadService is nil")
	}
	if s.leads == nil {
		return LeadBoard{}, fmt.Errorf("lead repository not configured")
	}

	vocab, err := s.lookupVocabulary(vocabulary)
	if err != nil {
		return LeadBoard{}, err
	}

	leads, err := s.leads.ListLeads(ctx, LeadRepositoryFilter{})
	if err != nil {
		return LeadBoard{}, mapLeadRepoError(err)
	}

	storage := s.registry.Storage()
	board := pipeline.GroupByStage(leads, vocab.Stages(), func(lead Lead) string {
		return displayStatus(lead.Status, storage, vocab)
	})

	if n := len(board.Unrecognized); n > 0 {
		s.loggerWith(ctx, "Board", "vocabulary", vocab.Name()).
			WarnContext(ctx, "leads with unrecognized status", "count", n)
	}

	return LeadBoard{
		Vocabulary: vocab.Name(),
		Stages:     vocab.Stages().IDs(),
		Board:      board,
	}, nil
}

// MoveLead applies a drop of a lead card onto the To column. Dropping onto
// the source column is a no-op and writes nothing.
func (s *LeadService) MoveLead(ctx context.Context, params MoveLeadParams) (result MoveResult, err error) {
	if s == nil {
		err = fmt.Errorf("LeadService is nil")
		return
	}
	if s.leads == nil {
		err = fmt.Errorf("lead repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "MoveLead",
		"lead_id", params.LeadID,
		"vocabulary", params.Vocabulary,
		"to", params.To,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to move lead", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if result.NoOp {
			logger.DebugContext(ctx, "lead dropped on its own stage")
			return
		}
		logger.InfoContext(ctx, "lead moved", "status", result.Lead.Status)
	}()

	var vocab pipeline.Vocabulary
	vocab, err = s.lookupVocabulary(params.Vocabulary)
	if err != nil {
		return
	}

	var lead Lead
	lead, err = s.leads.GetLead(ctx, params.LeadID)
	if err != nil {
		err = mapLeadRepoError(err)
		return
	}

	result, err = s.applyMove(ctx, lead, vocab, params.From, params.To)
	return
}

// applyMove computes and persists the transition of lead onto to. It is
// shared with the booking service, which moves leads as a side effect.
func (s *LeadService) applyMove(ctx context.Context, lead Lead, vocab pipeline.Vocabulary, from, to string) (MoveResult, error) {
	storage := s.registry.Storage()
	current := displayStatus(lead.Status, storage, vocab)
	if from == "" {
		from = current
	}

	transition, err := vocab.Stages().Transition(lead.ID, from, to)
	if err != nil {
		return MoveResult{}, err
	}
	if transition.NoOp {
		return MoveResult{Lead: lead, NoOp: true}, nil
	}
	if from != current {
		return MoveResult{}, fieldError("from", fmt.Sprintf("lead is in stage %q, not %q", current, from))
	}

	stored, err := vocab.Translate(transition.Update.NewStatus, storage)
	if err != nil {
		return MoveResult{}, err
	}

	updatedAt := s.now()
	if err := s.leads.UpdateLeadStatus(ctx, lead.ID, stored, updatedAt); err != nil {
		return MoveResult{}, mapLeadRepoError(err)
	}
	lead.Status = stored
	lead.UpdatedAt = updatedAt

	return MoveResult{Lead: lead, Update: transition.Update}, nil
}

func (s *LeadService) lookupVocabulary(name string) (pipeline.Vocabulary, error) {
	vocab, err := s.registry.Lookup(strings.TrimSpace(name))
	if err != nil {
		vErr := &ValidationError{}
		vErr.addCause("vocabulary", fmt.Sprintf("unknown vocabulary %q", name), err)
		return pipeline.Vocabulary{}, vErr
	}
	return vocab, nil
}

func (s *LeadService) validateLeadInput(input LeadInput) (LeadInput, *ValidationError) {
	vErr := &ValidationError{}
	out := LeadInput{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:   strings.TrimSpace(input.Phone),
		Company: strings.TrimSpace(input.Company),
		Source:  strings.TrimSpace(input.Source),
		Status:  strings.TrimSpace(input.Status),
		Notes:   input.Notes,
	}

	if out.Name == "" {
		vErr.add("name", "name is required")
	} else if len(out.Name) > 200 {
		vErr.add("name", "name must be at most 200 characters")
	}

	if out.Email != "" {
		addr, err := mail.ParseAddress(out.Email)
		if err != nil || addr.Address != out.Email {
			vErr.add("email", "must be a valid email address")
		}
	}

	stages := s.registry.Storage().Stages()
	if out.Status == "" {
		out.Status = stages.IDs()[0]
	} else if !stages.Contains(out.Status) {
		vErr.addCause("status", fmt.Sprintf("unknown status %q", out.Status), pipeline.ErrUnknownStage)
	}

	return out, vErr
}

// displayStatus renders a stored status in vocab, falling back to the raw
// value when it is not a storage stage.
func displayStatus(status string, storage, vocab pipeline.Vocabulary) string {
	label, err := storage.Translate(status, vocab)
	if err != nil {
		return status
	}
	return label
}

func mapLeadRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, persistence.ErrDuplicate):
		vErr := fieldError("email", "a lead with this email already exists")
		vErr.cause = ErrAlreadyExists
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("lead", "lead violates a storage constraint")
	}
	return err
}
