package handlers

import (
	"errors"
	"io"
	"net/http"
)

const (
	maxMultipartMemory = 32 << 20
	maxPhotoBytes      = 16 << 20

	formFieldPhoto = "photo"
)

// ReplacePhoto accepts a multipart image upload and swaps the account's
// profile photo pair. The previous pair is deleted in the background.
func (h *AccountHandler) ReplacePhoto(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token_invalid", "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}

	filename, data, err := parsePhotoFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	photo, err := h.media.ReplacePhoto(r.Context(), accountID, data, filename)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.assets.photoView(photo))
}

func parsePhotoFile(r *http.Request) (string, []byte, error) {
	if r.MultipartForm == nil {
		return "", nil, errors.New("missing form data")
	}

	files := r.MultipartForm.File[formFieldPhoto]
	if len(files) == 0 {
		return "", nil, errors.New("photo file is required")
	}
	if len(files) > 1 {
		return "", nil, errors.New("only one photo file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, errors.New("failed to read upload")
	}

	data, err := readFileLimited(file, maxPhotoBytes)
	_ = file.Close()
	if err != nil {
		return "", nil, err
	}
	return fileHeader.Filename, data, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
