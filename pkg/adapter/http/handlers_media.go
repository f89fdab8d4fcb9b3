package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/pkg/blob"
	"github.com/casahub/casahub/pkg/blob/upload"
)

// uploadItem is the per-file outcome of an upload request.
type uploadItem struct {
	Filename     string  `json:"filename"`
	OriginalName string  `json:"original_name,omitempty"`
	ID           blob.ID `json:"id,omitempty"`
	URL          string  `json:"url,omitempty"`
	Size         int64   `json:"size,omitempty"`
	ContentType  string  `json:"content_type,omitempty"`
	Error        string  `json:"error,omitempty"`

	// err keeps the original error for status mapping; unexported fields
	// never serialize.
	err error
}

// uploadResponse wraps the per-file outcomes of one multipart request.
type uploadResponse struct {
	Files []uploadItem `json:"files"`
}

// handleUpload ingests one or more files from a multipart request.
//
// Parts are streamed into the pipeline one at a time; nothing is buffered
// in memory beyond a single chunk. Failures are isolated per file: a
// rejected part is reported in its slot and the remaining parts still go
// through. With a single file the response status reflects its outcome
// directly; with several files the response is 200 and each entry carries
// its own error, if any.
func (a *HTTPAdapter) handleUpload(w http.ResponseWriter, r *http.Request) {
	uploader, err := a.app.Uploader()
	if err != nil {
		writeError(w, err)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "expected multipart/form-data body"})
		return
	}

	var items []uploadItem
	var failures int

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("malformed multipart body: %v", err)})
			return
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}

		items = append(items, a.uploadPart(r, uploader, part))
		if items[len(items)-1].Error != "" {
			failures++
		}
		part.Close()
	}

	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no file parts in request"})
		return
	}

	status := http.StatusCreated
	switch {
	case len(items) == 1 && failures == 1:
		status = statusFor(items[0].err)
	case failures > 0:
		status = http.StatusOK
	}

	writeJSON(w, status, uploadResponse{Files: items})
}

// uploadPart runs one multipart file part through the pipeline.
func (a *HTTPAdapter) uploadPart(r *http.Request, uploader *upload.Pipeline, part *multipart.Part) uploadItem {
	record, err := uploader.Run(r.Context(), upload.Request{
		Filename:     part.FileName(),
		ContentType:  part.Header.Get("Content-Type"),
		DeclaredSize: -1,
		Body:         part,
		Metadata:     map[string]string{"original_name": part.FileName()},
	})
	if err != nil {
		if !upload.IsRejection(err) {
			logger.Error("HTTP: upload of %q failed: %v", part.FileName(), err)
		}
		return uploadItem{Filename: part.FileName(), Error: err.Error(), err: err}
	}

	return uploadItem{
		Filename:     record.Filename,
		OriginalName: part.FileName(),
		ID:           record.ID,
		URL:          "/api/media/" + string(record.ID),
		Size:         record.Length,
		ContentType:  record.ContentType,
	}
}

// handleDownload streams blob bytes, honoring a single byte-range.
func (a *HTTPAdapter) handleDownload(w http.ResponseWriter, r *http.Request) {
	streamer, err := a.app.Streamer()
	if err != nil {
		writeError(w, err)
		return
	}
	reg, err := a.app.Registry()
	if err != nil {
		writeError(w, err)
		return
	}

	id := blob.ID(r.PathValue("id"))

	record, err := reg.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	offset, end, partial, satisfiable := parseRangeHeader(r.Header.Get("Range"), record.Length)
	if !satisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", record.Length))
		writeJSON(w, http.StatusRequestedRangeNotSatisfiable, errorBody{Error: "requested range not satisfiable"})
		return
	}

	_, body, err := streamer.OpenAt(r.Context(), id, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	length := end - offset + 1

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", record.Filename))

	status := http.StatusOK
	if partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, record.Length))
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	if _, err := io.Copy(w, io.LimitReader(body, length)); err != nil {
		// Headers are already on the wire; all we can do is log.
		logger.Warn("HTTP: streaming %s interrupted: %v", id, err)
	}
}

// parseRangeHeader interprets a Range header against the blob length.
//
// Supports the single-range forms "bytes=N-", "bytes=N-M", and "bytes=-N".
// A malformed or multi-range header is ignored and the full payload is
// served, per RFC 9110. A syntactically valid range that lies entirely
// beyond the payload is unsatisfiable.
//
// Returns the inclusive byte window, whether the response is partial, and
// whether the request is satisfiable at all.
func parseRangeHeader(header string, length int64) (offset, end int64, partial, satisfiable bool) {
	full := func() (int64, int64, bool, bool) {
		if length == 0 {
			return 0, -1, false, true
		}
		return 0, length - 1, false, true
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return full()
	}

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return full()
	}

	if first == "" {
		// Suffix form: last N bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return full()
		}
		offset = max(length-n, 0)
		return offset, length - 1, true, length > 0
	}

	offset, err := strconv.ParseInt(first, 10, 64)
	if err != nil || offset < 0 {
		return full()
	}

	end = length - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < offset {
			return full()
		}
		end = min(end, length-1)
	}

	if offset >= length {
		return 0, 0, false, false
	}
	return offset, end, true, true
}

// handleMediaInfo returns the blob record without payload bytes.
func (a *HTTPAdapter) handleMediaInfo(w http.ResponseWriter, r *http.Request) {
	reg, err := a.app.Registry()
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := reg.Get(r.Context(), blob.ID(r.PathValue("id")))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleDeleteMedia removes a blob. A repeated delete reports 404.
func (a *HTTPAdapter) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	reg, err := a.app.Registry()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := reg.Delete(r.Context(), blob.ID(r.PathValue("id"))); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
