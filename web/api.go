package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"flashcw/logger"
	"flashcw/store"
)

// StatusFunc 返回当前解码状态，会被编码成 JSON
type StatusFunc func() interface{}

// TranscriptLister 历史记录来源
type TranscriptLister interface {
	GetRecent(limit int) ([]store.Transcript, error)
}

// API REST 接口
type API struct {
	logger      *logger.Logger
	status      StatusFunc
	transcripts TranscriptLister
}

// NewAPI status 和 transcripts 都可以为 nil
func NewAPI(log *logger.Logger, status StatusFunc, transcripts TranscriptLister) *API {
	return &API{logger: log, status: status, transcripts: transcripts}
}

// HandleStatus GET /api/status
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body interface{} = map[string]interface{}{"status": "idle"}
	if a.status != nil {
		body = a.status()
	}
	a.writeJSON(w, http.StatusOK, body)
}

// HandleTranscripts GET /api/transcripts?limit=N
func (a *API) HandleTranscripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.transcripts == nil {
		a.writeJSON(w, http.StatusOK, []store.Transcript{})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := a.transcripts.GetRecent(limit)
	if err != nil {
		a.logger.Error("Failed to load transcripts", logger.Error(err))
		http.Error(w, "failed to load transcripts", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.Transcript{}
	}
	a.writeJSON(w, http.StatusOK, list)
}

func (a *API) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("Failed to encode response", logger.Error(err))
	}
}
