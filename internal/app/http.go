package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kigurumi/api/internal/auth"
	"kigurumi/api/internal/crawler"
	"kigurumi/api/internal/store"
	"kigurumi/api/internal/workflow"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/" {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Kigurumi Data API v2.0"})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
			"cache":    map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		if err := s.service.PingCache(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["cache"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/admin/login" {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Login(r.Context(), body.Username, body.Password)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	// Public catalog reads
	if r.Method == http.MethodGet && r.URL.Path == "/kigers" {
		data, err := s.service.ListKigers(r.Context())
		s.writeCached(w, r, data, err)
		return
	}
	if r.Method == http.MethodGet && r.URL.Path == "/characters" {
		data, err := s.service.ListCharacters(r.Context())
		s.writeCached(w, r, data, err)
		return
	}
	if r.Method == http.MethodGet && r.URL.Path == "/makers" {
		data, err := s.service.ListMakers(r.Context())
		s.writeCached(w, r, data, err)
		return
	}

	// Public submissions
	if r.Method == http.MethodPost && r.URL.Path == "/kiger" {
		var draft workflow.KigerDraft
		if err := decodeBody(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		pending, err := s.service.engine.SubmitKiger(r.Context(), draft)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Kiger %s submitted for review", pending.ID),
			"status":  pending.Status,
			"id":      pending.ID,
		})
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/character" {
		var draft store.CharacterDraft
		if err := decodeBody(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		pending, err := s.service.engine.SubmitCharacter(r.Context(), draft)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Character %s submitted for review", pending.OriginalName),
			"status":  pending.Status,
			"id":      strconv.FormatInt(pending.ID, 10),
		})
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/maker" {
		var draft workflow.MakerDraft
		if err := decodeBody(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		pending, err := s.service.engine.SubmitMaker(r.Context(), draft)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Maker %s submitted for review", pending.OriginalName),
			"status":  pending.Status,
			"id":      strconv.FormatInt(pending.ID, 10),
		})
		return
	}

	// Crawl endpoints
	if r.Method == http.MethodPost && r.URL.Path == "/crawl/twitter/user" {
		var body struct {
			Username string `json:"username"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Username) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "username is required", nil)
			return
		}
		payload, err := s.service.CrawlTwitterUser(r.Context(), body.Username)
		if err != nil {
			writeError(w, http.StatusBadGateway, "CRAWL_FAILED", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/crawl/twitter/tweet" {
		var body struct {
			Username string `json:"username"`
			TweetID  string `json:"tweet_id"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Username) == "" || strings.TrimSpace(body.TweetID) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "username and tweet_id are required", nil)
			return
		}
		result, err := s.service.CrawlTwitterTweet(r.Context(), body.Username, body.TweetID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/crawl/image" {
		var body struct {
			ImageURL string `json:"image_url"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, s.service.CrawlImage(r.Context(), body.ImageURL))
		return
	}

	parts := splitPath(r.URL.Path)

	// Public catalog detail reads
	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "kiger" {
		data, err := s.service.GetKigerDetail(r.Context(), parts[1])
		s.writeCached(w, r, data, err)
		return
	}
	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "character" {
		id, ok := parseID(w, parts[1])
		if !ok {
			return
		}
		data, err := s.service.GetCharacter(r.Context(), id)
		s.writeCached(w, r, data, err)
		return
	}
	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "maker" {
		id, ok := parseID(w, parts[1])
		if !ok {
			return
		}
		data, err := s.service.GetMaker(r.Context(), id)
		s.writeCached(w, r, data, err)
		return
	}

	if len(parts) > 0 && parts[0] == "admin" {
		s.handleAdmin(w, r, parts[1:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, parts []string) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "pending" {
		switch parts[1] {
		case "kigers":
			views, err := s.service.ListPendingKigers(r.Context())
			s.writeResult(w, views, err)
			return
		case "characters":
			views, err := s.service.ListPendingCharacters(r.Context())
			s.writeResult(w, views, err)
			return
		case "makers":
			views, err := s.service.ListPendingMakers(r.Context())
			s.writeResult(w, views, err)
			return
		}
	}

	if r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "review" {
		var body struct {
			Action string `json:"action"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}

		var (
			result workflow.ReviewResult
			err    error
			label  string
		)
		switch parts[1] {
		case "kiger":
			label = "Kiger"
			result, err = s.service.engine.ReviewKiger(r.Context(), parts[2], body.Action)
		case "character":
			label = "Character"
			id, ok := parseID(w, parts[2])
			if !ok {
				return
			}
			result, err = s.service.engine.ReviewCharacter(r.Context(), id, body.Action)
		case "maker":
			label = "Maker"
			id, ok := parseID(w, parts[2])
			if !ok {
				return
			}
			result, err = s.service.engine.ReviewMaker(r.Context(), id, body.Action)
		default:
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("%s %s %s", label, parts[2], result.Status),
			"status":  result.Status,
		})
		return
	}

	if r.Method == http.MethodPut && len(parts) == 2 && parts[0] == "kiger" {
		var draft workflow.KigerDraft
		if err := decodeBody(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, links, err := s.service.engine.DirectUpdateKiger(r.Context(), parts[1], draft)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, toKigerDetailView(updated, links))
		return
	}
	if r.Method == http.MethodPut && len(parts) == 2 && parts[0] == "character" {
		id, ok := parseID(w, parts[1])
		if !ok {
			return
		}
		var draft store.CharacterDraft
		if err := decodeBody(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.engine.DirectUpdateCharacter(r.Context(), id, draft)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, toCharacterView(updated))
		return
	}
	if r.Method == http.MethodPut && len(parts) == 2 && parts[0] == "maker" {
		id, ok := parseID(w, parts[1])
		if !ok {
			return
		}
		var draft workflow.MakerDraft
		if err := decodeBody(r, &draft); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.engine.DirectUpdateMaker(r.Context(), id, draft)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, toMakerView(updated))
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "cache" && parts[1] == "stats" {
		stats, err := s.service.CacheStats(r.Context())
		s.writeResult(w, stats, err)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// requireAdmin authenticates the admin bearer token. A missing credential is
// a 403, a bad one a 401; clients distinguish "log in" from "token rejected".
func (s *HTTPServer) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		writeError(w, http.StatusForbidden, "NOT_AUTHENTICATED", "Not authenticated", nil)
		return "", false
	}
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return "", false
	}
	username, err := s.service.AdminFromToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return "", false
	}
	return username, true
}

func (s *HTTPServer) writeCached(w http.ResponseWriter, r *http.Request, data json.RawMessage, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) writeResult(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "id must be an integer", nil)
		return 0, false
	}
	return id, true
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, workflow.ErrValidation) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	}
	if errors.Is(err, workflow.ErrInvalidAction) {
		return http.StatusBadRequest, "INVALID_ACTION", err.Error(), nil
	}
	if errors.Is(err, workflow.ErrNotFound) || isNoRows(err) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrBadCredentials) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect username or password", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, crawler.ErrExtraction) {
		return http.StatusBadGateway, "EXTRACTION_FAILED", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
