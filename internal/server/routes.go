package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Accounts
	mux.HandleFunc("/api/accounts/", s.routeAccounts)
	mux.HandleFunc("/api/accounts", s.handleAccounts)

	// Transactions and anchors by id
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/anchors/", s.handleAnchorByID)

	// Categories
	mux.HandleFunc("/api/categories/balancing", s.handleBalancingCategory)
	mux.HandleFunc("/api/categories", s.handleCategories)
}

// routeAccounts dispatches /api/accounts/{id}/* to the appropriate handler.
func (s *Server) routeAccounts(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
	if path == "" {
		s.handleAccounts(w, r)
		return
	}

	// Split into id and sub-path
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleAccountGet(w, r, id)
	case "balance":
		s.handleAccountBalance(w, r, id)
	case "anchors":
		s.handleAccountAnchor(w, r, id)
	case "recompute":
		s.handleAccountRecompute(w, r, id)
	case "rebuild":
		s.handleAccountRebuild(w, r, id)
	case "snapshots":
		s.handleAccountSnapshots(w, r, id)
	case "transactions":
		s.handleAccountTransactions(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.app.Storage.Backend(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
