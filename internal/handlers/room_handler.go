package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/internal/services"
)

// RoomHandler handles room catalog HTTP requests
type RoomHandler struct {
	rooms  RoomService
	logger *logrus.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomService, logger *logrus.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:  rooms,
		logger: logger,
	}
}

// RoomRequest is the body of create and update
type RoomRequest struct {
	RoomNumber string            `json:"room_number" binding:"required,max=10"`
	RoomType   string            `json:"room_type" binding:"required,max=50"`
	Price      int64             `json:"price" binding:"min=0"`
	Status     models.RoomStatus `json:"status"`
}

func (r RoomRequest) input() services.RoomInput {
	return services.RoomInput{
		RoomNumber: r.RoomNumber,
		RoomType:   r.RoomType,
		Price:      r.Price,
		Status:     r.Status,
	}
}

// ListRooms handles GET /api/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// GetRoom handles GET /api/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	room, err := h.rooms.GetRoom(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// ListByStatus handles GET /api/rooms/status/:status
func (h *RoomHandler) ListByStatus(c *gin.Context) {
	rooms, err := h.rooms.ListByStatus(c.Request.Context(), models.RoomStatus(c.Param("status")))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// ListByType handles GET /api/rooms/type/:type
func (h *RoomHandler) ListByType(c *gin.Context) {
	rooms, err := h.rooms.ListByType(c.Request.Context(), c.Param("type"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// ListByPrice handles GET /api/rooms/price?min=&max=
func (h *RoomHandler) ListByPrice(c *gin.Context) {
	min, err := strconv.ParseInt(c.DefaultQuery("min", "0"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid min")
		return
	}
	max, err := strconv.ParseInt(c.DefaultQuery("max", strconv.FormatInt(math.MaxInt64, 10)), 10, 64)
	if err != nil {
		badRequest(c, "Invalid max")
		return
	}
	if min > max {
		badRequest(c, "min cannot exceed max")
		return
	}

	rooms, err := h.rooms.ListByPriceRange(c.Request.Context(), min, max)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// CreateRoom handles POST /api/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// UpdateRoom handles PUT /api/rooms/:id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	room, err := h.rooms.UpdateRoom(c.Request.Context(), id, req.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// UpdateRoomStatus handles PUT /api/rooms/:id/status?status=
func (h *RoomHandler) UpdateRoomStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	status := c.Query("status")
	if status == "" {
		badRequest(c, "status is required")
		return
	}

	room, err := h.rooms.UpdateRoomStatus(c.Request.Context(), id, models.RoomStatus(status))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// DeleteRoom handles DELETE /api/rooms/:id
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.rooms.DeleteRoom(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Room deleted"})
}
