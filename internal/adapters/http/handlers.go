package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/usecases"
)

// StatusResponse is the control panel view of a replay.
type StatusResponse struct {
	domain.ReplayStatus
	Line string `json:"line"`
}

// RouteResponse carries both polylines.
type RouteResponse struct {
	Total    int          `json:"total"`
	Full     [][2]float64 `json:"full"`
	Traveled [][2]float64 `json:"traveled"`
}

type interactionRequest struct {
	Event string `json:"event"`
}

func statusResponse(st domain.ReplayStatus) StatusResponse {
	return StatusResponse{ReplayStatus: st, Line: st.Line(time.Local)}
}

// StatusHandler returns coordinates, timestamp, speed, index and play state.
func StatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(statusResponse(deps.Replay.Status()))
	}
}

// RouteHandler returns the full and traveled coordinate lists.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		full, traveled := deps.Replay.Coordinates()
		return c.JSON(RouteResponse{Total: len(full), Full: full, Traveled: traveled})
	}
}

// InteractionHandler records a map drag or zoom started by the user.
func InteractionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req interactionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if !deps.Replay.MarkInteraction(c.UserContext(), req.Event) {
			return errBadRequest(c, "unknown interaction event: "+req.Event)
		}
		return c.JSON(statusResponse(deps.Replay.Status()))
	}
}

// CommandHandler runs the toggle, reset or reload command named by the
// :command path parameter. A failed reload keeps the previous route and
// answers 502.
func CommandHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		cmd := domain.ControlCommand(c.Params("command"))

		err := deps.Replay.Execute(ctx, cmd)
		switch {
		case errors.Is(err, usecases.ErrUnknownCommand):
			return errNotFound(c, "unknown command: "+string(cmd))
		case err != nil:
			LoggerFromCtx(ctx).Warn("replay command failed", "command", cmd, "error", err)
			return errBadGateway(c, err.Error())
		}

		st := deps.Replay.Status()
		LoggerFromCtx(ctx).Info("replay command", "command", cmd,
			"playing", st.IsPlaying, "index", st.CurrentIndex)
		return c.JSON(statusResponse(st))
	}
}
