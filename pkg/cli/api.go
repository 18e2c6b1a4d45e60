package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mchmarny/pulse/pkg/audit"
	"github.com/mchmarny/pulse/pkg/basket"
	"github.com/mchmarny/pulse/pkg/data"
	"github.com/mchmarny/pulse/pkg/report"
)

const (
	contentTypeJSON     = "application/json"
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	contentTypeProm     = "text/plain; version=0.0.4; charset=utf-8"

	repoParam   = "r"
	queryParam  = "q"
	limitParam  = "limit"
	formatParam = "f"
)

type apiError struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("GET /api/assess", s.assessHandler)
	mux.HandleFunc("GET /api/compare", s.compareHandler)
	mux.HandleFunc("GET /api/report", s.reportHandler)
	mux.HandleFunc("GET /api/search", s.searchHandler)
	mux.HandleFunc("GET /api/history", s.historyHandler)
	mux.HandleFunc("GET /api/basket", s.basketListHandler)
	mux.HandleFunc("POST /api/basket", s.basketAddHandler)
	mux.HandleFunc("DELETE /api/basket", s.basketRemoveHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) assessHandler(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get(repoParam)
	if ref == "" {
		writeError(w, http.StatusBadRequest, "repository (r) parameter required")
		return
	}

	a, _ := s.current()
	res, err := a.Assess(r.Context(), ref)
	if err != nil {
		slog.Error("failed to assess", "repo", ref, "error", err)
		writeError(w, errorStatus(err), fmt.Sprintf("could not assess: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, report.FromResults([]*audit.Result{res})[0])
}

func (s *server) compareHandler(w http.ResponseWriter, r *http.Request) {
	refs := r.URL.Query()[repoParam]

	a, _ := s.current()
	results, err := a.Compare(r.Context(), refs)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report.FromResults(results))
}

// reportHandler renders one or more assessments in the requested format.
func (s *server) reportHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refs := q[repoParam]
	if len(refs) == 0 {
		writeError(w, http.StatusBadRequest, "repository (r) parameter required")
		return
	}

	format, err := parseFormat(q.Get(formatParam))
	if err != nil || format == formatYAML {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported report format: %s", q.Get(formatParam)))
		return
	}

	a, _ := s.current()
	var results []*audit.Result
	if len(refs) == 1 {
		res, err := a.Assess(r.Context(), refs[0])
		if err != nil {
			writeError(w, errorStatus(err), fmt.Sprintf("could not assess: %v", err))
			return
		}
		results = []*audit.Result{res}
	} else {
		results, err = a.Compare(r.Context(), refs)
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
	}

	reports := report.FromResults(results)
	var v any = reports
	if len(reports) == 1 {
		v = reports[0]
	}

	var buf bytes.Buffer
	if err := encodeReports(&buf, format, v, reports); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch format {
	case formatMarkdown:
		w.Header().Set("Content-Type", contentTypeMarkdown)
	case formatProm:
		w.Header().Set("Content-Type", contentTypeProm)
	default:
		w.Header().Set("Content-Type", contentTypeJSON)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("error writing report", "error", err)
	}
}

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseLimit(w, q.Get(limitParam), data.DefaultSearchLimit)
	if !ok {
		return
	}

	_, f := s.current()
	list, err := f.SearchRepositories(r.Context(), q.Get(queryParam), limit)
	if err != nil {
		slog.Error("failed to search", "query", q.Get(queryParam), "error", err)
		writeError(w, errorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *server) historyHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := parseLimit(w, q.Get(limitParam), data.DefaultHistoryLimit)
	if !ok {
		return
	}

	var name string
	if v := q.Get(repoParam); v != "" {
		ref, err := audit.ParseRef(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		name = ref.String()
	}

	list, err := s.store.GetAssessments(r.Context(), name, limit)
	if err != nil {
		slog.Error("failed to read history", "repo", name, "error", err)
		writeError(w, http.StatusInternalServerError, "error reading history")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *server) basketListHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.basket.List())
}

func (s *server) basketAddHandler(w http.ResponseWriter, r *http.Request) {
	ref, err := audit.ParseRef(r.URL.Query().Get(repoParam))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, f := s.current()
	repo, err := f.GetRepo(r.Context(), ref.Owner, ref.Name)
	if err != nil {
		writeError(w, errorStatus(err), fmt.Sprintf("could not find %s: %v", ref, err))
		return
	}

	added, err := s.basket.Add(r.Context(), basket.Item{
		Owner:    repo.Owner,
		Name:     repo.Name,
		FullName: repo.FullName,
		Stars:    repo.Stars,
	})
	if err != nil {
		slog.Error("failed to add to basket", "repo", repo.FullName, "error", err)
		writeError(w, http.StatusInternalServerError, "error saving basket")
		return
	}

	res := &basketChange{Repo: repo.FullName, Changed: added, Items: s.basket.List()}
	if !added {
		res.Reason = addRejectReason(s.basket)
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// basketRemoveHandler removes one repository, or clears the basket when
// no repository is given.
func (s *server) basketRemoveHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get(repoParam)
	if name == "" {
		if err := s.basket.Clear(r.Context()); err != nil {
			slog.Error("failed to clear basket", "error", err)
			writeError(w, http.StatusInternalServerError, "error saving basket")
			return
		}
		writeJSON(w, http.StatusOK, &basketChange{Changed: true, Items: s.basket.List()})
		return
	}

	if ref, err := audit.ParseRef(name); err == nil {
		name = ref.String()
	}

	removed, err := s.basket.Remove(r.Context(), name)
	if err != nil {
		slog.Error("failed to remove from basket", "repo", name, "error", err)
		writeError(w, http.StatusInternalServerError, "error saving basket")
		return
	}

	res := &basketChange{Repo: name, Changed: removed, Items: s.basket.List()}
	if !removed {
		res.Reason = "not in basket"
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseLimit(w http.ResponseWriter, v string, def int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %s", v))
		return 0, false
	}
	return n, true
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, audit.ErrInvalidRef), errors.Is(err, audit.ErrComparisonSize):
		return http.StatusBadRequest
	case errors.Is(err, data.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, data.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{
		Message: msg,
		Status:  http.StatusText(code),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}
