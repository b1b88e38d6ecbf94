package api

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/metrics"
	xlogger "MarketPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteWait = 10 * time.Second

// StatusWS streams job progress over a websocket, one JSON text frame per
// event, and closes normally after the last one.
func (h *AnalysisEchoHandler) StatusWS(c echo.Context) error {
	id := c.Param("id")
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// the read loop only notices the peer going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	metrics.StreamsActive.WithLabelValues(transportWS).Inc()
	defer metrics.StreamsActive.WithLabelValues(transportWS).Dec()

	reason, err := h.streamer.Stream(ctx, id, func(ev models.ProgressEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			return err
		}
		metrics.StreamEvents.WithLabelValues(transportWS, string(ev.Kind)).Inc()
		return nil
	})
	h.finish(transportWS, id, reason, err)

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(reason)),
		time.Now().Add(time.Second),
	)
	return nil
}
