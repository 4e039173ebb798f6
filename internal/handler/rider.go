package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farebridge/internal/domain"
	"farebridge/internal/service"
)

// RecordLister reads a rider's settlement records.
type RecordLister interface {
	ListByRider(ctx context.Context, riderID domain.RiderID, limit int) ([]domain.MoneyRecord, error)
}

// RiderHandler handles HTTP requests for rider inspection.
type RiderHandler struct {
	settlement *service.Settlement
	records    RecordLister
}

// NewRiderHandler creates a new RiderHandler.
func NewRiderHandler(settlement *service.Settlement, records RecordLister) *RiderHandler {
	return &RiderHandler{settlement: settlement, records: records}
}

// GetEligibility handles GET /v1/riders/:id/eligibility?time=
func (h *RiderHandler) GetEligibility(c *gin.Context) {
	riderID := domain.RiderID(c.Param("id"))
	if riderID == "" {
		respondError(c, service.ErrInvalidRiderID)
		return
	}

	now, err := strconv.ParseFloat(c.Query("time"), 64)
	if err != nil || now < 0 {
		respondError(c, service.ErrInvalidEventTime)
		return
	}

	st := h.settlement.Inspect(riderID, now)

	resp := EligibilityResponse{
		RiderID:  string(riderID),
		Time:     now,
		Eligible: st.Eligible,
		Credits:  make([]CreditResponse, 0, len(st.Credits)),
	}
	for _, cr := range st.Credits {
		resp.Credits = append(resp.Credits, CreditResponse{
			GrantedAt: cr.GrantedAt,
			ExpiresAt: cr.ExpiresAt,
			Consumed:  cr.Consumed,
		})
	}
	if st.Session != nil {
		resp.Session = &SessionResponse{
			VehicleID:           st.Session.VehicleID,
			PickupTime:          st.Session.PickupTime,
			FreeSecondsAllotted: st.Session.FreeSecondsAllotted,
		}
	}
	if st.LastTrip != nil {
		resp.LastTrip = &TripResponse{
			StartTime:   st.LastTrip.StartTime,
			EndTime:     st.LastTrip.EndTime,
			RideSeconds: st.LastTrip.RideSeconds,
			FareCharged: st.LastTrip.FareCharged,
			Refunded:    st.LastTrip.Refunded,
		}
	}

	respondJSON(c, http.StatusOK, resp)
}

// GetRecords handles GET /v1/riders/:id/records
func (h *RiderHandler) GetRecords(c *gin.Context) {
	riderID := domain.RiderID(c.Param("id"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	recs, err := h.records.ListByRider(c.Request.Context(), riderID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"rider_id": string(riderID),
		"records":  toRecordResponses(recs),
	})
}
