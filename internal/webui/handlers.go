package webui

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"

	"hdrconv/internal/conversion"
	"hdrconv/internal/fileutil"
	"hdrconv/internal/history"
	"hdrconv/internal/jobs"
	"hdrconv/internal/logging"
	"hdrconv/internal/textutil"
)

// multipartMemory is the in-memory part of a parsed upload; the rest spills
// to temporary files.
const multipartMemory = 32 << 20

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Ready:               true,
		ActiveJobs:          s.store.Active(),
		SupportedExtensions: conversion.SupportedExtensions(),
		MaxUploadBytes:      s.maxUploadBytes,
	}
	if s.status != nil {
		for _, dep := range s.status() {
			resp.Tools = append(resp.Tools, ToolStatus{
				Name:        dep.Name,
				Command:     dep.Command,
				Description: dep.Description,
				Optional:    dep.Optional,
				Available:   dep.Available,
				Detail:      dep.Detail,
			})
			if !dep.Optional && !dep.Available {
				resp.Ready = false
			}
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: s.store.List()})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, JobResponse{Job: job})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Cancel(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("job cancel requested",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("status", string(job.Status)),
	)
	s.writeJSON(w, http.StatusAccepted, JobResponse{Job: job})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)

	// Reject before reading a possibly multi-gigabyte body.
	if s.store.Busy() {
		s.writeError(w, http.StatusConflict, jobs.ErrBusy.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds the %s limit", humanize.IBytes(uint64(s.maxUploadBytes))))
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, `missing "file" field`)
		return
	}
	defer file.Close()

	name := textutil.SanitizeFileName(filepath.Base(header.Filename))
	if !conversion.IsSupported(name) {
		s.writeError(w, http.StatusBadRequest, conversion.UnsupportedFormatDetail(name))
		return
	}

	if err := s.ensureUpload(); err != nil {
		logging.ErrorWithContext(logger, "upload directory unavailable", "upload_dir_error", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "upload directory unavailable")
		return
	}
	dst, err := fileutil.NextAvailablePath(filepath.Join(s.uploadDir, name))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	written, err := fileutil.WriteNew(dst, file, 0o644)
	if err != nil {
		logging.ErrorWithContext(logger, "upload write failed", "upload_write_error",
			logging.String("path", dst), logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job, err := s.store.Start(r.Context(), conversion.Request{InputPath: dst, OutputDir: s.outputDir})
	if err != nil {
		_ = fileutil.RemoveIfExists(dst)
		if errors.Is(err, jobs.ErrBusy) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("upload accepted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", dst),
		logging.Int64("bytes", written),
	)
	s.writeJSON(w, http.StatusAccepted, JobResponse{Job: job})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusDone || job.OutputPath == "" {
		s.writeError(w, http.StatusConflict, "output not ready")
		return
	}
	f, err := os.Open(job.OutputPath)
	if err != nil {
		s.writeError(w, http.StatusGone, "output no longer available")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": filepath.Base(job.OutputPath)}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	entries, err := s.history(r.Context(), limit)
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Warn("history query failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}
