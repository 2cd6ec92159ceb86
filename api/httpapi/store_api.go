package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"orderflow/api/ws"
	"orderflow/domain/book"
	"orderflow/service/store"
)

// StoreAPI adapts the market state store to HTTP: the publish endpoint
// the sequencer fires into, the WebSocket broadcast channel, and the
// probe endpoints.
type StoreAPI struct {
	svc *store.Store
	hub *ws.Hub
	log *zap.Logger
}

func NewStoreAPI(svc *store.Store, hub *ws.Hub, log *zap.Logger) *StoreAPI {
	return &StoreAPI{svc: svc, hub: hub, log: log}
}

func (a *StoreAPI) Register(e *echo.Echo) {
	e.POST("/events", a.publish)
	e.GET("/ws", echo.WrapHandler(a.hub))
	e.GET("/healthz", a.probe)
	e.GET("/readyz", a.probe)
}

// publishRequest is either an order envelope or an execution batch;
// pointer fields tell which keys were actually present.
type publishRequest struct {
	Order         *book.Order       `json:"order"`
	AskExecutions *[]book.Execution `json:"askExecutions"`
	BidExecutions *[]book.Execution `json:"bidExecutions"`
}

// -------------------- Handlers --------------------

func (a *StoreAPI) publish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed event payload",
		})
	}

	switch {
	case req.Order != nil:
		if err := a.svc.IngestOrder(*req.Order); err != nil {
			if errors.Is(err, book.ErrInvalidSide) {
				return c.JSON(http.StatusBadRequest, map[string]string{
					"error": err.Error(),
				})
			}
			a.log.Error("ingest failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal error",
			})
		}

	case req.AskExecutions != nil || req.BidExecutions != nil:
		batch := book.ExecutionBatch{}
		if req.AskExecutions != nil {
			batch.AskExecutions = *req.AskExecutions
		}
		if req.BidExecutions != nil {
			batch.BidExecutions = *req.BidExecutions
		}
		if err := a.svc.ApplyExecutions(batch); err != nil {
			a.log.Error("apply executions failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal error",
			})
		}

	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "expected an order or an execution batch",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "applied"})
}

func (a *StoreAPI) probe(c echo.Context) error {
	if a.svc.Draining() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "draining"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
