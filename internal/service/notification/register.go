package notification

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/server"
)

// Register mounts the notification inbox on the authenticated API group.
func (s *Service) Register(rg *gin.RouterGroup) {
	rg.GET("/notifications", s.handleList)
	rg.POST("/notifications/:id/read", s.handleMarkRead)
	rg.POST("/notifications/read-all", s.handleMarkAllRead)
}

func (s *Service) handleList(c *gin.Context) {
	var token *string
	if t := c.Query("token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	inbox, err := s.List(c.Request.Context(), server.CallerID(c), token, limit)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, gin.H{
		"notifications": inbox.Items,
		"next_token":    inbox.NextToken,
		"unread_count":  inbox.UnreadCount,
	})
}

func (s *Service) handleMarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		server.Fail(c, apperr.Validation("invalid notification id"))
		return
	}
	if err := s.MarkRead(c.Request.Context(), id, server.CallerID(c)); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handleMarkAllRead(c *gin.Context) {
	if err := s.MarkAllRead(c.Request.Context(), server.CallerID(c)); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}
