package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/growth-crm/internal/application"
)

type leadService interface {
	CreateLead(ctx context.Context, input application.LeadInput) (application.Lead, error)
	GetLead(ctx context.Context, id string) (application.Lead, error)
	ListLeads(ctx context.Context, params application.ListLeadsParams) ([]application.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	Board(ctx context.Context, vocabulary string) (application.LeadBoard, error)
	MoveLead(ctx context.Context, params application.MoveLeadParams) (application.MoveResult, error)
}

// LeadHandler serves lead CRUD, the pipeline board and card moves.
type LeadHandler struct {
	service   leadService
	responder responder
	logger    *slog.Logger
}

func NewLeadHandler(service leadService, logger *slog.Logger) *LeadHandler {
	base := defaultLogger(logger)
	return &LeadHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *LeadHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LeadHandler", operation, attrs...)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req leadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode lead request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	lead, err := h.service.CreateLead(r.Context(), req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "lead creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("lead_id", lead.ID).InfoContext(r.Context(), "lead created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, leadResponse{Lead: toLeadDTO(lead)})
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	leadID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(leadID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	lead, err := h.service.GetLead(r.Context(), leadID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, leadResponse{Lead: toLeadDTO(lead)})
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	logger := h.log(r.Context(), "List")
	leads, err := h.service.ListLeads(r.Context(), application.ListLeadsParams{
		Status: query.Get("status"),
		Query:  query.Get("q"),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "lead list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(leads)).DebugContext(r.Context(), "leads listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLeadsResponse{Leads: toLeadDTOs(leads)})
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	leadID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(leadID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	if err := h.service.DeleteLead(r.Context(), leadID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Move handles a card drop on the kanban board.
func (h *LeadHandler) Move(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	leadID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(leadID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Move", "lead_id", leadID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode move request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Move", "lead_id", leadID, "to", req.To)
	result, err := h.service.MoveLead(r.Context(), application.MoveLeadParams{
		LeadID:     leadID,
		Vocabulary: req.Vocabulary,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "lead move failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := moveResponse{Lead: toLeadDTO(result.Lead), NoOp: result.NoOp}
	if !result.NoOp {
		resp.Update = &statusUpdateDTO{EntityID: result.Update.EntityID, NewStatus: result.Update.NewStatus}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Board renders every lead grouped by the stages of ?vocabulary=.
func (h *LeadHandler) Board(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	board, err := h.service.Board(r.Context(), r.URL.Query().Get("vocabulary"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	columns := make(map[string][]leadDTO, len(board.Stages))
	for stage, leads := range board.Board.Map() {
		columns[stage] = toLeadDTOs(leads)
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, boardResponse{
		Vocabulary:   board.Vocabulary,
		Stages:       board.Stages,
		Columns:      columns,
		Unrecognized: toLeadDTOs(board.Board.Unrecognized),
	})
}

type leadRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Source  string `json:"source"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

func (r leadRequest) toInput() application.LeadInput {
	return application.LeadInput{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Company: r.Company,
		Source:  r.Source,
		Status:  r.Status,
		Notes:   r.Notes,
	}
}

type moveRequest struct {
	Vocabulary string `json:"vocabulary"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type leadResponse struct {
	Lead leadDTO `json:"lead"`
}

type listLeadsResponse struct {
	Leads []leadDTO `json:"leads"`
}

type statusUpdateDTO struct {
	EntityID  string `json:"entity_id"`
	NewStatus string `json:"new_status"`
}

type moveResponse struct {
	Lead   leadDTO          `json:"lead"`
	Update *statusUpdateDTO `json:"update"`
	NoOp   bool             `json:"noop"`
}

type boardResponse struct {
	Vocabulary   string               `json:"vocabulary"`
	Stages       []string             `json:"stages"`
	Columns      map[string][]leadDTO `json:"columns"`
	Unrecognized []leadDTO            `json:"unrecognized"`
}

type leadDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	Source    string `json:"source,omitempty"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toLeadDTO(lead application.Lead) leadDTO {
	return leadDTO{
		ID:        lead.ID,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		Source:    lead.Source,
		Status:    lead.Status,
		Notes:     lead.Notes,
		CreatedAt: formatTime(lead.CreatedAt),
		UpdatedAt: formatTime(lead.UpdatedAt),
	}
}

func toLeadDTOs(leads []application.Lead) []leadDTO {
	out := make([]leadDTO, 0, len(leads))
	for _, lead := range leads {
		out = append(out, toLeadDTO(lead))
	}
	return out
}
