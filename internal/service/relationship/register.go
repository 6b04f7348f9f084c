package relationship

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/server"
)

// Register mounts the relationship actions and the "who liked/viewed me"
// lists on the authenticated API group.
func (s *Service) Register(rg *gin.RouterGroup) {
	rg.POST("/users/:id/like", s.handleLike)
	rg.DELETE("/users/:id/like", s.handleUnlike)
	rg.POST("/users/:id/block", s.handleBlock)
	rg.DELETE("/users/:id/block", s.handleUnblock)
	rg.POST("/users/:id/report", s.handleReport)
	rg.POST("/users/:id/pass", s.handlePass)
	rg.POST("/users/:id/view", s.handleView)

	rg.GET("/me/viewers", s.handleViewers)
	rg.GET("/me/likers", s.handleLikers)
	rg.GET("/me/likers/count", s.handleLikerCount)
}

func targetID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid user id")
	}
	return id, nil
}

func (s *Service) handleLike(c *gin.Context) {
	id, err := targetID(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	res, err := s.Like(c.Request.Context(), server.CallerID(c), id)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, res)
}

func (s *Service) handleUnlike(c *gin.Context) {
	id, err := targetID(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if err := s.Unlike(c.Request.Context(), server.CallerID(c), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handleBlock(c *gin.Context) {
	id, err := targetID(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if err := s.Block(c.Request.Context(), server.CallerID(c), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handleUnblock(c *gin.Context) {
	id, err := targetID(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if err := s.Unblock(c.Request.Context(), server.CallerID(c), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handleReport(c *gin.Context) {
	id, err := targetID(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		server.Fail(c, apperr.Validation("invalid request body"))
		return
	}
	if err := s.Report(c.Request.Context(), server.CallerID(c), id, body.Reason); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handlePass(c *gin.Context) {
	id, err := targetID(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if err := s.Pass(c.Request.Context(), server.CallerID(c), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handleView(c *gin.Context) {
	id, err := targetID(c)
	if err != nil {
		server.Fail(c, err)
		return
	}
	if err := s.RecordView(c.Request.Context(), server.CallerID(c), id); err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, nil)
}

func (s *Service) handleViewers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := s.ListViewers(c.Request.Context(), server.CallerID(c), limit)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, gin.H{"viewers": entries})
}

func (s *Service) handleLikers(c *gin.Context) {
	var token *string
	if t := c.Query("token"); t != "" {
		token = &t
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	list := s.ListLikers
	if c.Query("new") == "true" {
		list = s.ListNewLikers
	}

	likes, next, err := list(c.Request.Context(), server.CallerID(c), token, limit)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, gin.H{"likers": likes, "next_token": next})
}

func (s *Service) handleLikerCount(c *gin.Context) {
	count, err := s.CountLikers(c.Request.Context(), server.CallerID(c))
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, gin.H{"count": count})
}
