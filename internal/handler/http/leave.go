package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-backend-go/internal/handler/http/response"
)

type LeaveHandler interface {
	RecordLeave(w http.ResponseWriter, r *http.Request)
}

type leaveHandlerImpl struct {
	leaveService leave.LeaveService
}

func NewLeaveHandler(leaveService leave.LeaveService) LeaveHandler {
	return &leaveHandlerImpl{
		leaveService: leaveService,
	}
}

// RecordLeave implements LeaveHandler.
func (h *leaveHandlerImpl) RecordLeave(w http.ResponseWriter, r *http.Request) {
	var req leave.RecordLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode leave request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.leaveService.RecordLeave(r.Context(), req)
	if err != nil {
		if response.Partial(err) {
			response.SuccessWithMessage(w, fmt.Sprintf("Leave recorded with %d failed date(s)", result.Errored), result)
			return
		}
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, fmt.Sprintf(
		"Leave recorded: %d created, %d updated, %d skipped",
		result.Created, result.Updated, result.Skipped,
	), result)
}
