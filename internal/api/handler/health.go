package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	list DocumentList
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(list DocumentList) *HealthHandler {
	return &HealthHandler{list: list}
}

// Health returns the health status of the service and the list cursor.
// A failed last fetch is reported but does not make the service unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.list != nil {
		st := h.list.State()
		resp["list_date"] = st.Date
		resp["list_loading"] = st.Loading
		resp["list_failed"] = st.Failed()
		if !st.FetchedAt.IsZero() {
			resp["last_fetch"] = st.FetchedAt
		}
	}
	c.JSON(http.StatusOK, resp)
}
