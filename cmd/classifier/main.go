package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"semantic-sensei/internal/adapters/catalog"
	"semantic-sensei/internal/adapters/classifier"
	"semantic-sensei/internal/infra/config"
	geminiinfra "semantic-sensei/internal/infra/gemini"
	httpinfra "semantic-sensei/internal/infra/http"
	applog "semantic-sensei/internal/infra/log"
	"semantic-sensei/internal/infra/metrics"
)

type searchRequest struct {
	SearchTerm string `json:"search_term"`
}

type predictionPayload struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type termPayload struct {
	Term        string              `json:"term"`
	Uncertain   bool                `json:"uncertain"`
	Predictions []predictionPayload `json:"predictions"`
}

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	if cfg.Gemini.APIKey == "" {
		logger.Fatal().Msg("classifier: не указан ключ Gemini (GEMINI_API_KEY)")
	}
	categories, err := catalog.Load(cfg.Catalog.CSVPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Catalog.CSVPath).Msg("classifier: не удалось загрузить каталог категорий")
	}
	logger.Info().Int("count", len(categories)).Msg("classifier: каталог категорий загружен")

	geminiClient := geminiinfra.NewClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Timeout)
	geminiClassifier := classifier.NewGeminiClassifier(geminiClient, cfg.Gemini.Model, categories, logger)

	server := httpinfra.NewServer(logger)
	server.Router.Post("/search", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		term := strings.TrimSpace(req.SearchTerm)
		if term == "" {
			writeError(w, http.StatusBadRequest, "Missing search_term in request body")
			return
		}

		result, err := geminiClassifier.Classify(r.Context(), term)
		if err != nil {
			logger.Error().Err(err).Str("term", term).Msg("classifier: генерация не удалась")
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Internal server error: %v", err))
			return
		}

		predictions := make([]predictionPayload, 0, len(result.Predictions))
		for _, p := range result.Predictions {
			predictions = append(predictions, predictionPayload{Code: p.Code, Name: p.Name, Score: p.Score})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"result": map[string]any{
				"predictions": []termPayload{{
					Term:        result.Term,
					Uncertain:   result.Uncertain,
					Predictions: predictions,
				}},
			},
			"token_details": map[string]int{
				"prompt_tokens":     result.Usage.PromptTokens,
				"candidates_tokens": result.Usage.CandidateTokens,
				"total_tokens":      result.Usage.TotalTokens,
			},
		})
	})

	go func() {
		logger.Info().Int("port", cfg.Port).Msg("classifier: старт")
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("classifier: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("classifier: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
