package api

import (
	"bufio"
	stderrors "errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paveg/datafilter/internal/analyzer"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/filter"
	"github.com/paveg/datafilter/internal/history"
	"github.com/paveg/datafilter/internal/sorting"
	"github.com/paveg/datafilter/internal/validation"
	"github.com/paveg/datafilter/internal/value"
	"github.com/paveg/datafilter/internal/version"
)

// defaultPreviewLines is the number of raw lines returned by /api/preview.
const defaultPreviewLines = 5

type pathRequest struct {
	Path  string `json:"path"`
	Lines int    `json:"lines,omitempty"`
}

type replaceRequest struct {
	Data dataset.Dataset `json:"data"`
	Path string          `json:"path,omitempty"`
}

type fileEntry struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Supported bool   `json:"supported"`
}

type filesResponse struct {
	Status string      `json:"status"`
	Files  []fileEntry `json:"files"`
}

type previewResponse struct {
	Status  string `json:"status"`
	Path    string `json:"path"`
	Preview string `json:"preview"`
}

// dataResponse carries the first rows of the working dataset.
type dataResponse struct {
	Status     string                       `json:"status"`
	Path       string                       `json:"path,omitempty"`
	Count      int                          `json:"count"`
	Dirty      bool                         `json:"dirty"`
	Signatures []dataset.FieldTypeSignature `json:"signatures"`
	Data       dataset.Dataset              `json:"data"`
}

type saveResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

type filterRequest struct {
	Conditions  []filter.Condition `json:"conditions"`
	Expressions []string           `json:"expressions"`
}

type filterStatRequest struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Stat     string `json:"stat"`
}

type filterStatResponse struct {
	dataResponse
	Threshold float64 `json:"threshold"`
}

type sortRequest struct {
	Keys []string `json:"keys"`
}

type statsResponse struct {
	Status string                           `json:"status"`
	Count  int                              `json:"count"`
	Report analyzer.Report                  `json:"report"`
	Fields map[string]dataset.FieldPresence `json:"fields"`
}

type fieldRequest struct {
	Field     string            `json:"field"`
	NewName   string            `json:"new_name,omitempty"`
	Value     value.Value       `json:"value"`
	Condition *filter.Condition `json:"condition,omitempty"`
	Where     string            `json:"where,omitempty"`
}

type updateResponse struct {
	dataResponse
	Updated int `json:"updated"`
}

type historyStepResponse struct {
	Status      string `json:"status"`
	Applied     bool   `json:"applied"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count"`
}

type historyResponse struct {
	Status  string       `json:"status"`
	History history.Info `json:"history"`
}

type versionResponse struct {
	Status  string            `json:"status"`
	Version version.BuildInfo `json:"version"`
}

func (s *Server) handleFiles(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(s.cfg.DataDir)
	if stderrors.Is(err, fs.ErrNotExist) {
		s.writeJSON(w, http.StatusOK, filesResponse{Status: statusSuccess, Files: []fileEntry{}})
		return
	}
	if err != nil {
		s.writeError(w, errors.NewInternalError("ListFiles", err))
		return
	}

	files := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{
			Name:      e.Name(),
			Size:      info.Size(),
			Supported: s.session.Registry().Supported(e.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	s.writeJSON(w, http.StatusOK, filesResponse{Status: statusSuccess, Files: files})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	path, err := resolvePath(s.cfg.DataDir, req.Path, "Preview")
	if err != nil {
		s.writeError(w, err)
		return
	}
	lines := req.Lines
	if lines <= 0 {
		lines = defaultPreviewLines
	}

	preview, err := headLines(path, lines)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, previewResponse{Status: statusSuccess, Path: req.Path, Preview: preview})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	path, err := resolvePath(s.cfg.DataDir, req.Path, "Load")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.session.Load(path); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, s.cfg.PreviewRows)
}

// handleReplace installs records posted in the body as the working dataset.
// The optional path names the default save target under the output
// directory.
func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var path string
	if req.Path != "" {
		resolved, err := resolvePath(s.cfg.OutputDir, req.Path, "Replace")
		if err != nil {
			s.writeError(w, err)
			return
		}
		path = resolved
	}
	if err := s.session.Replace(req.Data, path); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, s.cfg.PreviewRows)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	path, err := resolvePath(s.cfg.OutputDir, req.Path, "Save")
	if err != nil {
		s.writeError(w, err)
		return
	}
	written, err := s.session.Save(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saveResponse{Status: statusSuccess, Path: written})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.PreviewRows
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, errors.NewInvalidArgumentError("Data", "", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	s.writeData(w, http.StatusOK, limit)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	conds := append([]filter.Condition(nil), req.Conditions...)
	for _, expr := range req.Expressions {
		c, err := filter.ParseCondition(expr)
		if err != nil {
			s.writeError(w, err)
			return
		}
		conds = append(conds, c)
	}
	if _, err := s.session.Filter(conds...); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, s.cfg.PreviewRows)
}

func (s *Server) handleFilterByStat(w http.ResponseWriter, r *http.Request) {
	var req filterStatRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	threshold, _, err := s.session.FilterByStat(req.Field, filter.Operator(req.Operator), req.Stat)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, filterStatResponse{
		dataResponse: s.dataResponse(s.cfg.PreviewRows),
		Threshold:    threshold,
	})
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	keys := make([]sorting.Key, 0, len(req.Keys))
	for _, raw := range req.Keys {
		k, err := sorting.ParseKey(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		keys = append(keys, k)
	}
	if res := s.session.Sort(keys...); res.Err != nil {
		s.writeError(w, res.Err)
		return
	}
	s.writeData(w, http.StatusOK, s.cfg.PreviewRows)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	report, err := s.session.Stats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	fields, err := s.session.Fields()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{
		Status: statusSuccess,
		Count:  s.session.Len(),
		Report: report,
		Fields: fields,
	})
}

func (s *Server) handleFields(w http.ResponseWriter, _ *http.Request) {
	fields, err := s.session.Fields()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": statusSuccess, "fields": fields})
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	s.handleFieldChange(w, r, func(req fieldRequest) error {
		return s.session.AddField(req.Field, req.Value)
	})
}

func (s *Server) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	s.handleFieldChange(w, r, func(req fieldRequest) error {
		return s.session.RemoveField(req.Field)
	})
}

func (s *Server) handleRenameField(w http.ResponseWriter, r *http.Request) {
	s.handleFieldChange(w, r, func(req fieldRequest) error {
		return s.session.RenameField(req.Field, req.NewName)
	})
}

func (s *Server) handleFieldChange(w http.ResponseWriter, r *http.Request, apply func(fieldRequest) error) {
	var req fieldRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := apply(req); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, s.cfg.PreviewRows)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var cond filter.Condition
	switch {
	case req.Condition != nil:
		cond = *req.Condition
	case req.Where != "":
		c, err := filter.ParseCondition(req.Where)
		if err != nil {
			s.writeError(w, err)
			return
		}
		cond = c
	default:
		s.writeError(w, errors.NewInvalidArgumentError("UpdateField", req.Field, "a condition or where expression is required"))
		return
	}

	updated, err := s.session.UpdateField(cond, req.Field, req.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updateResponse{
		dataResponse: s.dataResponse(s.cfg.PreviewRows),
		Updated:      updated,
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, _ *http.Request) {
	desc, ok := s.session.Undo()
	s.writeJSON(w, http.StatusOK, historyStepResponse{
		Status: statusSuccess, Applied: ok, Description: desc, Count: s.session.Len(),
	})
}

func (s *Server) handleRedo(w http.ResponseWriter, _ *http.Request) {
	desc, ok := s.session.Redo()
	s.writeJSON(w, http.StatusOK, historyStepResponse{
		Status: statusSuccess, Applied: ok, Description: desc, Count: s.session.Len(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, historyResponse{Status: statusSuccess, History: s.session.History()})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	info := version.Info()
	info.Deps = nil
	info.Formats = s.session.Registry().Extensions()
	s.writeJSON(w, http.StatusOK, versionResponse{Status: statusSuccess, Version: info})
}

func (s *Server) writeData(w http.ResponseWriter, status, limit int) {
	s.writeJSON(w, status, s.dataResponse(limit))
}

func (s *Server) dataResponse(limit int) dataResponse {
	d := s.session.Data()
	return dataResponse{
		Status:     statusSuccess,
		Path:       s.session.Path(),
		Count:      len(d),
		Dirty:      s.session.Dirty(),
		Signatures: dataset.Signatures(d),
		Data:       d.Head(limit),
	}
}

// resolvePath maps a client path onto base. Only local relative paths are
// accepted, so requests cannot reach outside the configured directory.
func resolvePath(base, path, op string) (string, error) {
	if err := validation.ValidatePath(path, op); err != nil {
		return "", err
	}
	if !filepath.IsLocal(path) {
		return "", errors.NewPathError(op, path, "path must be relative to the served directory")
	}
	return filepath.Join(base, path), nil
}

// headLines returns up to n lines from the start of path, newlines included.
func headLines(path string, n int) (string, error) {
	const op = "Preview"
	f, err := os.Open(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return "", errors.NewNotFoundError(op, path, err)
	}
	if err != nil {
		return "", &errors.DatasetError{Kind: errors.KindPath, Op: op, Path: path, Message: "cannot open file", Cause: err}
	}
	defer f.Close()

	var sb strings.Builder
	reader := bufio.NewReader(f)
	for range n {
		line, err := reader.ReadString('\n')
		sb.WriteString(line)
		if err != nil {
			break
		}
	}
	return sb.String(), nil
}
