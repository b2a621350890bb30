package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"FOBI-Map/internal/domain/service"
)

// LocationHandler は地名解決APIのハンドラー
type LocationHandler struct {
	locationName *service.LocationNameService
}

// NewLocationHandler は新しいLocationHandlerインスタンスを作成
func NewLocationHandler(locationName *service.LocationNameService) *LocationHandler {
	return &LocationHandler{locationName: locationName}
}

// GetLocationName GET /api/location-name?lat=&lng=
func (h *LocationHandler) GetLocationName(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respondValidation(c, &ValidationError{Field: "lat", Message: "latは数値で指定してください"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		respondValidation(c, &ValidationError{Field: "lng", Message: "lngは数値で指定してください"})
		return
	}

	name, err := h.locationName.Resolve(c.Request.Context(), lat, lng)
	if err != nil {
		respondValidation(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lat": lat, "lng": lng, "location_name": name})
}
