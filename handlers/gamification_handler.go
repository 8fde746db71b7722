package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bvesterAPI/internal/achievement"
	"bvesterAPI/internal/challenge"
	"bvesterAPI/middleware"
	"bvesterAPI/services"

	"github.com/gorilla/mux"
)

type GamificationHandler struct {
	engine  *services.GamificationService
	history *services.HistoryService
}

func NewGamificationHandler(engine *services.GamificationService, history *services.HistoryService) *GamificationHandler {
	return &GamificationHandler{
		engine:  engine,
		history: history,
	}
}

type awardActionRequest struct {
	Action string `json:"action"`
	Amount *int   `json:"amount,omitempty"`
}

// AwardAction awards points for a user-driven platform event and reports
// any achievements the event unlocked.
func (h *GamificationHandler) AwardAction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req awardActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action == "" {
		respondWithError(w, http.StatusBadRequest, "Field 'action' is required")
		return
	}

	result := h.engine.AwardPoints(uid, req.Action, req.Amount)
	if result == nil {
		respondWithJSON(w, http.StatusOK, map[string]any{"awarded": false})
		return
	}

	unlocked := h.engine.CheckAchievements(uid, achievement.Context{ActionName: req.Action})

	respondWithJSON(w, http.StatusOK, map[string]any{
		"awarded":               true,
		"result":                result,
		"unlocked_achievements": unlocked,
	})
}

// CheckIn records today's activity for the streak tracker.
func (h *GamificationHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	streak, unlocked := h.engine.UpdateStreak(uid)

	respondWithJSON(w, http.StatusOK, map[string]any{
		"streak":                streak,
		"unlocked_achievements": unlocked,
	})
}

type checkAchievementsRequest struct {
	ReadinessScore float64 `json:"readiness_score,omitempty"`
	TotalFunding   float64 `json:"total_funding,omitempty"`
	PortfolioSize  int     `json:"portfolio_size,omitempty"`
	ReferralCount  int     `json:"referral_count,omitempty"`
}

// CheckAchievements lets the surrounding platform report externally
// computed stats (readiness score, funding totals) for matching.
func (h *GamificationHandler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req checkAchievementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	unlocked := h.engine.CheckAchievements(uid, achievement.Context{
		ReadinessScore: req.ReadinessScore,
		TotalFunding:   req.TotalFunding,
		PortfolioSize:  req.PortfolioSize,
		ReferralCount:  req.ReferralCount,
	})

	respondWithJSON(w, http.StatusOK, map[string]any{"unlocked_achievements": unlocked})
}

func (h *GamificationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, h.engine.GetUserStats(uid))
}

func (h *GamificationHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, h.engine.ListAchievements(uid))
}

func (h *GamificationHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, h.engine.ListChallenges(uid))
}

func (h *GamificationHandler) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	challengeID := mux.Vars(r)["challengeID"]
	if challengeID == "" {
		respondWithError(w, http.StatusBadRequest, "Challenge ID is required")
		return
	}

	if err := h.engine.JoinChallenge(uid, challengeID); err != nil {
		switch {
		case errors.Is(err, challenge.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Challenge not found")
		case errors.Is(err, challenge.ErrInactive):
			respondWithError(w, http.StatusConflict, "This challenge is not currently active")
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge joined"})
}

type challengeProgressRequest struct {
	Metric string  `json:"metric"`
	Amount float64 `json:"amount,omitempty"`
}

func (h *GamificationHandler) UpdateChallengeProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challengeProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Metric == "" {
		respondWithError(w, http.StatusBadRequest, "Field 'metric' is required")
		return
	}

	completed := h.engine.UpdateChallengeProgress(uid, req.Metric, req.Amount)

	respondWithJSON(w, http.StatusOK, map[string]any{"completed_challenges": completed})
}

func (h *GamificationHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	period := r.URL.Query().Get("period")

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "Query parameter 'limit' must be a positive integer")
			return
		}
		if parsed > 100 {
			parsed = 100
		}
		limit = parsed
	}

	respondWithJSON(w, http.StatusOK, h.engine.GetLeaderboard(period, limit))
}

func (h *GamificationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	events, err := h.history.RecentEvents(ctx, uid, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load event history")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"events": events})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
