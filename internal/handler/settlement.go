package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farebridge/internal/domain"
	"farebridge/internal/service"
	"farebridge/internal/sink"
)

// MaxBatchEvents bounds the size of POST /v1/events/batch.
const MaxBatchEvents = 10000

// SettlementHandler handles HTTP requests for event ingestion and iteration
// lifecycle.
type SettlementHandler struct {
	settlement  *service.Settlement
	memory      *sink.Memory
	concurrency int
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlement *service.Settlement, memory *sink.Memory, concurrency int) *SettlementHandler {
	return &SettlementHandler{
		settlement:  settlement,
		memory:      memory,
		concurrency: concurrency,
	}
}

// HandleEvent handles POST /v1/events
func (h *SettlementHandler) HandleEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ev := req.toDomain()
	outcome := h.settlement.Handle(c.Request.Context(), ev)

	respondJSON(c, http.StatusOK, EventResponse{ID: ev.ID, Outcome: string(outcome)})
}

// HandleBatch handles POST /v1/events/batch
func (h *SettlementHandler) HandleBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Events) > MaxBatchEvents {
		respondError(c, service.ErrBatchTooLarge)
		return
	}

	events := make([]domain.Event, len(req.Events))
	for i, r := range req.Events {
		events[i] = r.toDomain()
	}

	outcomes, err := h.settlement.HandleBatch(c.Request.Context(), events, h.concurrency)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := BatchResponse{Results: make([]EventResponse, len(events))}
	for i, outcome := range outcomes {
		resp.Results[i] = EventResponse{ID: events[i].ID, Outcome: string(outcome)}
		switch outcome {
		case domain.OutcomeApplied:
			resp.Applied++
		case domain.OutcomeIgnored:
			resp.Ignored++
		case domain.OutcomeDropped:
			resp.Dropped++
		}
	}
	respondJSON(c, http.StatusOK, resp)
}

// StartIteration handles POST /v1/iterations
func (h *SettlementHandler) StartIteration(c *gin.Context) {
	var req IterationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Iteration == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.settlement.OnIterationStart(*req.Iteration); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, IterationResponse{Iteration: *req.Iteration})
}

// GetAnomalies handles GET /v1/anomalies
func (h *SettlementHandler) GetAnomalies(c *gin.Context) {
	respondJSON(c, http.StatusOK, h.settlement.Anomalies())
}

// GetRecords handles GET /v1/records
func (h *SettlementHandler) GetRecords(c *gin.Context) {
	recs := h.memory.List()
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(recs) {
		recs = recs[len(recs)-limit:]
	}
	respondJSON(c, http.StatusOK, gin.H{
		"iteration": h.settlement.Iteration(),
		"records":   toRecordResponses(recs),
	})
}
