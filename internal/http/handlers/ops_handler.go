// README: Ops endpoints that move an order through the warehouse and rider stages.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vetrimart/internal/http/middleware"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/types"
)

type OpsHandler struct {
	order *order.Service
	clock Clock
}

func NewOpsHandler(svc *order.Service, clock Clock) *OpsHandler {
	return &OpsHandler{order: svc, clock: clock}
}

type opsAction func(ctx context.Context, id types.ID, actor order.Actor, now time.Time) (*order.Order, error)

func (h *OpsHandler) run(action opsAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !isValidID(id) {
			writeError(c, http.StatusBadRequest, "invalid order id")
			return
		}
		uid := types.ID(middleware.CallerUID(c))
		actor := order.Actor{Type: order.ActorOps, ID: &uid}
		o, err := action(c.Request.Context(), types.ID(id), actor, h.clock.now())
		if err != nil {
			writeDomainError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, gin.H{"order_id": o.ID, "status": o.Status})
	}
}

func (h *OpsHandler) Dispatch() gin.HandlerFunc { return h.run(h.order.Dispatch) }
func (h *OpsHandler) Start() gin.HandlerFunc    { return h.run(h.order.StartDelivery) }
func (h *OpsHandler) Delay() gin.HandlerFunc    { return h.run(h.order.MarkDelayed) }
func (h *OpsHandler) Fail() gin.HandlerFunc     { return h.run(h.order.MarkFailed) }
func (h *OpsHandler) Deliver() gin.HandlerFunc  { return h.run(h.order.ConfirmDelivery) }
