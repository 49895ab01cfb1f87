package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suka712/inyeon-upstream/internal/retrieval"
)

// IndexRequest is the body of POST /api/v1/rag/index.
type IndexRequest struct {
	Files map[string]string `json:"files" binding:"required"`
}

// SearchRequest is the body of POST /api/v1/rag/search.
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	NResults int    `json:"n_results" binding:"omitempty,min=1,max=50"`
}

func (s *Server) ragIndex(c *gin.Context) {
	var req IndexRequest
	if !bind(c, &req) {
		return
	}
	ids, err := s.deps.Index.IndexFiles(c.Request.Context(), req.Files)
	if err != nil {
		writeError(c, err)
		return
	}
	total, err := s.deps.Index.Count()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": len(ids), "total": total})
}

func (s *Server) ragSearch(c *gin.Context) {
	var req SearchRequest
	if !bind(c, &req) {
		return
	}
	if req.NResults == 0 {
		req.NResults = retrieval.DefaultResults
	}
	results, err := s.deps.Index.Search(c.Request.Context(), req.Query, req.NResults)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) ragStats(c *gin.Context) {
	n, err := s.deps.Index.Count()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed_files": n})
}

func (s *Server) ragClear(c *gin.Context) {
	if err := s.deps.Index.Clear(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
