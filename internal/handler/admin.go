package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/backup"
)

// DailyReport summarizes the orders of ?date=YYYY-MM-DD, today by default.
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	day := h.now().In(h.loc)
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}
	writeJSON(w, http.StatusOK, toDailyStats(h.Orders.DailyStats(day)))
}

// Export streams a backup of every stored collection. Queued writes are
// flushed first so the backup includes the latest changes. ?gzip=1
// compresses it.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	compress, _ := strconv.ParseBool(r.URL.Query().Get("gzip"))

	if h.Flusher != nil {
		if err := h.Flusher.Flush(r.Context()); err != nil {
			zctx.From(r.Context()).Warn("Flush before export", zap.Error(err))
		}
	}
	now := h.now()
	doc, err := backup.FromStore(r.Context(), h.Store, now)
	if err != nil {
		fail(w, r, errors.Wrap(err, "read backup"))
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+backup.FileName(now.In(h.loc), compress)+`"`)
	if compress {
		w.Header().Set("Content-Type", "application/gzip")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := backup.Write(w, doc, compress); err != nil {
		zctx.From(r.Context()).Error("Write backup", zap.Error(err))
	}
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	fail(w, r, backup.Import(r.Context(), r.Body))
}
