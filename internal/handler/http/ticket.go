package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// maxStatusForm caps a multipart status update body: ten photos of up to 10MB.
var maxStatusForm int64 = 100 << 20

// statusFormMemory is held in memory while parsing; larger parts go to temp files.
const statusFormMemory = 32 << 20

type TicketHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	Transitions(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
}

type ticketHandlerImpl struct {
	ticketService ticket.TicketService
}

func NewTicketHandler(ticketService ticket.TicketService) TicketHandler {
	return &ticketHandlerImpl{
		ticketService: ticketService,
	}
}

// Create implements TicketHandler.
func (h *ticketHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req ticket.CreateTicketRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.ticketService.CreateTicket(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Ticket created", result)
}

// List implements TicketHandler.
func (h *ticketHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := ticket.ListTicketsFilter{
		ZoneID: queryString(r, "zone_id", "zoneId"),
		Page:   getIntQueryParam(r, "page", 1),
		Limit:  getIntQueryParam(r, "limit", 20),
	}
	if status := queryString(r, "status"); status != nil {
		s := ticket.Status(*status)
		filter.Status = &s
	}

	result, err := h.ticketService.ListTickets(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Get implements TicketHandler.
func (h *ticketHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.ticketService.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// History implements TicketHandler.
func (h *ticketHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	result, err := h.ticketService.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Transitions implements TicketHandler.
func (h *ticketHandlerImpl) Transitions(w http.ResponseWriter, r *http.Request) {
	result, err := h.ticketService.AllowedTransitions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpdateStatus accepts a JSON body, or a multipart form with the JSON in a
// 'data' field and files under 'photos'.
func (h *ticketHandlerImpl) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req ticket.UpdateStatusRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxStatusForm)
		if err := r.ParseMultipartForm(statusFormMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || r.ContentLength > maxStatusForm {
				response.Fail(w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "Request body exceeds the upload limit", nil)
				return
			}
			slog.Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data")
			return
		}
		defer r.MultipartForm.RemoveAll()

		dataJSON := r.FormValue("data")
		if dataJSON == "" {
			response.BadRequest(w, "Field 'data' is required")
			return
		}
		if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
			response.BadRequest(w, "Invalid request format")
			return
		}

		photos, closeAll, err := openPhotos(r.MultipartForm.File["photos"])
		defer closeAll()
		if err != nil {
			slog.Error("Failed to open uploaded photo", "error", err)
			response.BadRequest(w, "Invalid file upload")
			return
		}
		req.Photos = photos
	} else if !decodeJSON(w, r, &req, false) {
		return
	}

	req.TicketID = chi.URLParam(r, "id")

	result, err := h.ticketService.UpdateStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// openPhotos opens every uploaded file. The returned func closes whatever
// was opened, also on error.
func openPhotos(headers []*multipart.FileHeader) ([]ticket.PhotoUpload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	photos := make([]ticket.PhotoUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		files = append(files, f)
		photos = append(photos, ticket.PhotoUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return photos, closeAll, nil
}
