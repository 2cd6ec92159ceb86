package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"orderflow/service/sequencer"
)

// SequencerAPI adapts the sequencer service to HTTP.
type SequencerAPI struct {
	svc *sequencer.Service
	log *zap.Logger
}

func NewSequencerAPI(svc *sequencer.Service, log *zap.Logger) *SequencerAPI {
	return &SequencerAPI{svc: svc, log: log}
}

// Register mounts the submission endpoint and the probe endpoints.
func (a *SequencerAPI) Register(e *echo.Echo) {
	e.POST("/orders", a.submit)
	e.GET("/healthz", a.probe)
	e.GET("/readyz", a.probe)
}

// -------------------- Handlers --------------------

func (a *SequencerAPI) submit(c echo.Context) error {
	var raw sequencer.RawOrder
	if err := c.Bind(&raw); err != nil {
		// Mistyped fields (price as a string, side as a number) land
		// here as bind errors.
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed order payload",
		})
	}

	o, err := a.svc.Submit(raw)
	if err != nil {
		var verr *sequencer.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": verr.Error(),
			})
		case errors.Is(err, sequencer.ErrDraining):
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "shutting down",
			})
		default:
			a.log.Error("submission failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal error",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "accepted",
		"orderId": o.OrderID,
		"secnum":  o.Secnum,
	})
}

func (a *SequencerAPI) probe(c echo.Context) error {
	if a.svc.Draining() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "draining"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
