package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wallet-portfolio/internal/service"
)

// handleGetPortfolio handles GET /api/v1/portfolio/{wallet} - assemble the
// wallet's current portfolio without persisting anything
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	result, err := s.portfolio.Assemble(r.Context(), wallet, service.AssembleOptions{})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleCreateSnapshot handles POST /api/v1/portfolio/{wallet}/snapshots -
// assemble and persist a snapshot of the current portfolio
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	result, err := s.portfolio.Assemble(r.Context(), wallet, service.AssembleOptions{Persist: true})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// handleListSnapshots handles GET /api/v1/portfolio/{wallet}/snapshots
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	snapshots, err := s.portfolio.History(r.Context(), wallet)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"walletAddress": wallet,
		"snapshots":     snapshots,
	})
}

// handleGetPerformance handles GET /api/v1/portfolio/{wallet}/performance
func (s *Server) handleGetPerformance(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	performance, err := s.portfolio.Performance(r.Context(), wallet)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, performance)
}

// handleExportPortfolio handles GET /api/v1/portfolio/{wallet}/export -
// assemble the portfolio and stream it as CSV
func (s *Server) handleExportPortfolio(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	result, err := s.portfolio.Assemble(r.Context(), wallet, service.AssembleOptions{})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=portfolio_%s.csv", wallet))
	w.WriteHeader(http.StatusOK)

	if err := service.WriteCSV(w, result.Portfolio); err != nil {
		s.logger.WithError(err).Error("failed to write csv export")
	}
}
