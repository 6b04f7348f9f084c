package discovery

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/server"
)

// Register mounts the discovery feed on the authenticated API group.
func (s *Service) Register(rg *gin.RouterGroup) {
	rg.GET("/discover", s.handleCandidates)
}

func (s *Service) handleCandidates(c *gin.Context) {
	q, err := queryFromRequest(c)
	if err != nil {
		server.Fail(c, err)
		return
	}

	page, err := s.Candidates(c.Request.Context(), server.CallerID(c), q)
	if err != nil {
		server.Fail(c, err)
		return
	}
	server.OK(c, gin.H{"candidates": page})
}

func queryFromRequest(c *gin.Context) (Query, error) {
	var q Query
	var err error

	if q.AgeMin, err = intParam(c, "age_min"); err != nil {
		return q, err
	}
	if q.AgeMax, err = intParam(c, "age_max"); err != nil {
		return q, err
	}
	if q.MinSharedTags, err = intParam(c, "min_shared_tags"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(c, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = intParam(c, "offset"); err != nil {
		return q, err
	}
	if q.MaxDistanceKm, err = floatParam(c, "max_distance_km"); err != nil {
		return q, err
	}
	if q.MinFame, err = floatParam(c, "min_fame"); err != nil {
		return q, err
	}

	q.Sort = SortField(c.Query("sort"))
	q.Dir = SortDir(c.Query("dir"))
	return q, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return n, nil
}

func floatParam(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.Validation("%s must be a number", name)
	}
	return f, nil
}
