package handler

import (
	"net/http"

	bookingserrors "remoteassist/internal/bookings/errors"
	"remoteassist/internal/bookings/service"
	"remoteassist/internal/bookings/validator"
	httputil "remoteassist/pkg/http"
	"remoteassist/pkg/logger"
	"remoteassist/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service   service.BookingService
	validator *validator.BookingValidator
	log       *logger.Logger
}

func NewBookingHandler(service service.BookingService, validator *validator.BookingValidator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:   service,
		validator: validator,
		log:       log,
	}
}

// Create answers POST /api/bookings with the stored booking.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := h.validator.Decode(r.Body)
	if err != nil {
		h.log.Warn("Rejected booking payload", "error", err, "path", r.URL.Path)
		h.respond(w, "Create", nil, bookingserrors.ToAppError(err))
		return
	}

	booking, err := h.service.Create(r.Context(), req)
	h.respond(w, "Create", booking, err)
}

// List answers GET /api/bookings[?status=S]. An empty status lists all.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	if err == nil && bookings == nil {
		bookings = []*model.Booking{}
	}
	h.respond(w, "List", bookings, err)
}

// respond writes err when it is set and data otherwise. Write failures
// mean the client went away, so they are only logged.
func (h *BookingHandler) respond(w http.ResponseWriter, op string, data any, err error) {
	var writeErr error
	if err != nil {
		writeErr = httputil.WriteError(w, err)
	} else {
		writeErr = httputil.WriteSuccess(w, data)
	}
	if writeErr != nil {
		h.log.Error("Failed to write response", "handler", op, "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/bookings", h.Create)
	router.GET("/api/bookings", h.List)
}
