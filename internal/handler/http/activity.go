package http

import (
	"net/http"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ActivityHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	GetMyActivities(w http.ResponseWriter, r *http.Request)
	End(w http.ResponseWriter, r *http.Request)
	ListStages(w http.ResponseWriter, r *http.Request)
	CreateStage(w http.ResponseWriter, r *http.Request)
	EndStage(w http.ResponseWriter, r *http.Request)
}

type activityHandlerImpl struct {
	activityService activity.ActivityService
}

func NewActivityHandler(activityService activity.ActivityService) ActivityHandler {
	return &activityHandlerImpl{
		activityService: activityService,
	}
}

func (h *activityHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req activity.CreateActivityRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.activityService.CreateActivity(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Activity started", result)
}

func (h *activityHandlerImpl) GetMyActivities(w http.ResponseWriter, r *http.Request) {
	filter := activity.MyActivitiesFilter{Date: queryString(r, "date")}

	result, err := h.activityService.GetMyActivities(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *activityHandlerImpl) End(w http.ResponseWriter, r *http.Request) {
	result, err := h.activityService.EndActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Activity ended", result)
}

func (h *activityHandlerImpl) ListStages(w http.ResponseWriter, r *http.Request) {
	result, err := h.activityService.ListStages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *activityHandlerImpl) CreateStage(w http.ResponseWriter, r *http.Request) {
	var req activity.CreateStageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	req.ActivityID = chi.URLParam(r, "id")

	result, err := h.activityService.CreateStage(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Stage started", result)
}

func (h *activityHandlerImpl) EndStage(w http.ResponseWriter, r *http.Request) {
	result, err := h.activityService.EndStage(r.Context(), chi.URLParam(r, "stageID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Stage ended", result)
}
