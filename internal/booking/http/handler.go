package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/booking"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/storage"
	roomHttp "github.com/nekogravitycat/room-booking-backend/internal/room/http"
)

type Handler struct {
	service   booking.Service
	artifacts storage.Storage
}

func NewHandler(service booking.Service, artifacts storage.Storage) *Handler {
	return &Handler{
		service:   service,
		artifacts: artifacts,
	}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	date, start, end, err := body.Slot()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Book(c.Request.Context(), booking.BookRequest{
		UserID:    auth.GetUserID(c),
		Username:  auth.GetUsername(c),
		Date:      date,
		Start:     start,
		End:       end,
		Attendees: body.Attendees,
		Purpose:   body.Purpose,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := CreateBookingResponse{Booking: NewBookingResponse(result.Reservation)}
	if result.Warning != nil {
		resp.Warning = "booking confirmed, but the booking pass could not be prepared yet"
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}
	req.Normalize()

	items, total, err := h.service.List(c.Request.Context(), booking.Filter{
		UserID:   auth.GetUserID(c),
		Status:   booking.Status(req.Status),
		When:     booking.When(req.When),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := make([]BookingResponse, len(items))
	for i, r := range items {
		resp[i] = NewBookingResponse(r)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(resp, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	res, err := h.service.Get(c.Request.Context(), auth.GetUserID(c), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(res))
}

func (h *Handler) Cancel(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	if err := h.service.Cancel(c.Request.Context(), auth.GetUserID(c), req.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Pass streams the QR booking pass.
func (h *Handler) Pass(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	ctx := c.Request.Context()
	res, err := h.service.Get(ctx, auth.GetUserID(c), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.ArtifactPath == "" {
		response.Error(c, booking.ErrArtifactNotReady)
		return
	}

	file, err := h.artifacts.Get(ctx, res.ArtifactPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = booking.ErrArtifactNotReady
		}
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", "image/png")
	c.Header("Content-Disposition", `inline; filename="`+res.ReferenceCode+`.png"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) Availability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	date, start, end, err := parseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		response.Error(c, err)
		return
	}

	rooms, err := h.service.Availability(c.Request.Context(), booking.AvailabilityQuery{
		Date:      date,
		Start:     start,
		End:       end,
		Attendees: req.Attendees,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]AvailabilityItem, len(rooms))
	for i, ra := range rooms {
		items[i] = AvailabilityItem{Room: roomHttp.NewResponse(ra.Room), Available: ra.Available}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Verify is public: anyone holding a reference (e.g. scanned from a pass) may check it.
func (h *Handler) Verify(c *gin.Context) {
	res, err := h.service.Verify(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewVerifyResponse(res))
}
