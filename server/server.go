// Package server exposes the persisted record collection to viewers.
// It is read-only: every handler answers from the store's load path
// and never mutates the collection.
package server

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhad/bidwatch/internal/models"
	"github.com/xhad/bidwatch/internal/types"
)

type Config struct {
	Addr string
}

type Server struct {
	config Config
	store  types.Store
	logger *zap.Logger
}

func New(config Config, store types.Store, logger *zap.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	return &Server{config: config, store: store, logger: logger}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/records", s.handleRecords)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/export.csv", s.handleExport)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("server.start", zap.String("addr", s.config.Addr))
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

// filtered loads the collection and applies the query-string filters
// shared by the records and export endpoints.
func (s *Server) filtered(r *http.Request) ([]models.NoticeRecord, error) {
	records, _, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	q := r.URL.Query()
	city := q.Get("city")
	category := q.Get("category")
	location := q.Get("location")
	needle := q.Get("q")
	activeOnly := q.Get("active") == "true"
	now := time.Now()

	filtered := make([]models.NoticeRecord, 0, len(records))
	for _, rec := range records {
		if city != "" && rec.City != city {
			continue
		}
		if category != "" && string(rec.Category) != category {
			continue
		}
		if location != "" && !containsString(rec.KeywordLocation, location) {
			continue
		}
		if needle != "" && !strings.Contains(rec.Title, needle) {
			continue
		}
		if activeOnly && rec.Expired(now) {
			continue
		}
		filtered = append(filtered, rec)
	}

	return filtered, nil
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.filtered(r)
	if err != nil {
		s.logger.Error("records.load_failed", zap.Error(err))
		http.Error(w, "failed to load records", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"total":   len(records),
		"records": records,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	records, metadata, err := s.store.Load()
	if err != nil {
		s.logger.Error("stats.load_failed", zap.Error(err))
		http.Error(w, "failed to load records", http.StatusInternalServerError)
		return
	}

	byCategory := map[string]int{}
	byCity := map[string]int{}
	byLocation := map[string]int{}
	expired := 0
	now := time.Now()

	for _, rec := range records {
		byCategory[string(rec.Category)]++
		city := rec.City
		if city == "" {
			city = "其他"
		}
		byCity[city]++
		for _, loc := range rec.KeywordLocation {
			byLocation[loc]++
		}
		if rec.Expired(now) {
			expired++
		}
	}

	writeJSON(w, map[string]any{
		"total":       len(records),
		"expired":     expired,
		"by_category": byCategory,
		"by_city":     byCity,
		"by_location": byLocation,
		"metadata":    metadata,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.filtered(r)
	if err != nil {
		s.logger.Error("export.load_failed", zap.Error(err))
		http.Error(w, "failed to load records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bidding_data.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"id", "title", "info_type", "publish_date", "province", "city",
		"budget_amount", "procurement_type", "bidding_deadline",
		"keywords", "keyword_location", "detail_url",
	})

	for _, rec := range records {
		publishDate := ""
		if !rec.PublishDate.IsZero() {
			publishDate = rec.PublishDate.Format("2006-01-02")
		}
		cw.Write([]string{
			rec.ID,
			rec.Title,
			string(rec.Category),
			publishDate,
			rec.Province,
			rec.City,
			rec.BudgetAmount,
			rec.ProcurementType,
			rec.BiddingDeadline.String(),
			strings.Join(rec.MatchedKeywords, ","),
			strings.Join(rec.KeywordLocation, ","),
			rec.DetailURL,
		})
	}
	cw.Flush()
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(payload)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
