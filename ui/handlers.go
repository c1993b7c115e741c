package ui

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gobrick/adapters/excel"
	"gobrick/adapters/wire"
	"gobrick/app"
	"gobrick/domain/brick"
	"gobrick/domain/core"
	"gobrick/internal/energy"
	"gobrick/internal/errors"
	"gobrick/internal/overlay"
)

const defaultListLimit = 50

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"params": a.service.Params(),
	})
}

// handleEvaluate accepts a brick payload. The format comes from ?format=,
// then Content-Type, then sniffing the body.
func (a *App) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	query, err := app.ParseBrickQuery(r.URL.Query())
	if err != nil {
		a.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody(errors.CodeInvalidInput,
				fmt.Sprintf("brick exceeds %d bytes", tooLarge.Limit)))
			return
		}
		a.writeError(w, errors.InvalidInput(fmt.Sprintf("failed to read body: %v", err)))
		return
	}

	format := query.Format
	if r.URL.Query().Get("format") == "" {
		format = wire.Sniff(payload)
		if ct := r.Header.Get("Content-Type"); ct != "" {
			if parsed, err := wire.ParseFormat(ct); err == nil {
				format = parsed
			}
		}
	}

	var params *energy.Params
	if query.HasObserverOverrides() {
		p, err := query.Params(a.service.Params())
		if err != nil {
			a.writeError(w, err)
			return
		}
		params = &p
	}

	result, err := a.service.EvaluatePayload(r.Context(), payload, format, params)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *App) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	records, err := a.service.List(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": records,
		"count":       len(records),
	})
}

func (a *App) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	records, err := a.service.List(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := excel.WriteEvaluations(&buf, records); err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="evaluations.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (a *App) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := a.evaluationID(w, r)
	if !ok {
		return
	}
	rec, err := a.service.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleGetBrick returns the evaluated brick with its observerRobust block attached
func (a *App) handleGetBrick(w http.ResponseWriter, r *http.Request) {
	id, ok := a.evaluationID(w, r)
	if !ok {
		return
	}
	format := wire.FormatBinary
	if raw := r.URL.Query().Get("format"); raw != "" {
		parsed, err := wire.ParseFormat(raw)
		if err != nil {
			a.writeError(w, errors.InvalidInput(err.Error()))
			return
		}
		format = parsed
	}
	b, err := a.service.Brick(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	payload, err := wire.Encode(b, format)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (a *App) handleFrameField(w http.ResponseWriter, r *http.Request) {
	id, ok := a.evaluationID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	condition, err := brick.ParseCondition(withDefault(q.Get("condition"), string(brick.ConditionNEC)))
	if err != nil {
		a.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	frame, err := brick.ParseFrame(withDefault(q.Get("frame"), string(brick.FrameRobust)))
	if err != nil {
		a.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	field, err := a.service.FrameField(r.Context(), id, overlay.FrameOptions{Condition: condition, Frame: frame})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

func (a *App) handleDirectionField(w http.ResponseWriter, r *http.Request) {
	id, ok := a.evaluationID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	condition, err := brick.ParseCondition(withDefault(q.Get("condition"), string(brick.ConditionNEC)))
	if err != nil {
		a.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	mask, err := brick.ParseMaskMode(q.Get("maskMode"))
	if err != nil {
		a.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	decMode, err := brick.ParseDECDirectionMode(q.Get("decDirectionMode"))
	if err != nil {
		a.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	cfg := overlay.DirectionConfig{MaskMode: mask, DECDirectionMode: decMode}
	if raw := q.Get("minMagnitude"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			a.writeError(w, errors.InvalidInput(fmt.Sprintf("minMagnitude must be a non-negative number, got %q", raw)))
			return
		}
		cfg.MinMagnitude = v
	}
	field, err := a.service.DirectionField(r.Context(), id, condition, cfg)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

// handleReport renders HTML unless ?format=markdown
func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := a.evaluationID(w, r)
	if !ok {
		return
	}
	report, err := a.service.Report(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, report.Markdown)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(report.HTML())
}

func (a *App) evaluationID(w http.ResponseWriter, r *http.Request) (core.EvaluationID, bool) {
	id, err := core.ParseEvaluationID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, errors.InvalidInput(fmt.Sprintf("invalid evaluation id: %v", err)))
		return "", false
	}
	return id, true
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.InvalidInput(fmt.Sprintf("limit must be a non-negative integer, got %q", raw))
	}
	return limit, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
