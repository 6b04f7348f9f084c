package profile

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/server"
)

// Register mounts location and tag endpoints on the authenticated API group.
func (s *Service) Register(rg *gin.RouterGroup) {
	rg.PUT("/me/location", s.handleReportLocation)
	rg.GET("/me/location", s.handleLocation)
	rg.GET("/me/tags", s.handleTags)
	rg.POST("/me/tags/:id", s.handleAttachTag)
	rg.DELETE("/me/tags/:id", s.handleDetachTag)
}

func (s *Service) handleReportLocation(c *gin.Context) {
	var body struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		City      string  `json:"city"`
		Country   string  `json:"country"`
		Source    string  `json:"source"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		server.Fail(c, apperr.Validation("invalid request body"))
		return
	}

	loc, err := s.ReportLocation(c.Request.Context(), server.CallerID(c), LocationUpdate{
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		City:      body.City,
		Country:   body.Country,
		Source:    body.Source,
	})
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, loc)
}

func (s *Service) handleLocation(c *gin.Context) {
	loc, err := s.Location(c.Request.Context(), server.CallerID(c))
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, loc)
}

func (s *Service) handleTags(c *gin.Context) {
	ids, err := s.Tags(c.Request.Context(), server.CallerID(c))
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, gin.H{"tag_ids": ids})
}

func (s *Service) handleAttachTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		server.Fail(c, apperr.Validation("invalid tag id"))
		return
	}
	if err := s.AttachTag(c.Request.Context(), server.CallerID(c), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handleDetachTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		server.Fail(c, apperr.Validation("invalid tag id"))
		return
	}
	if err := s.DetachTag(c.Request.Context(), server.CallerID(c), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}
