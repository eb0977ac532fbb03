package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/interaktiv/kyra-assist/internal/gateway"
	"github.com/interaktiv/kyra-assist/internal/http/response"
	"github.com/interaktiv/kyra-assist/internal/platform/apierr"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 32 << 20

// fileSizeKeys are the size field spellings seen across gateway
// revisions.
var fileSizeKeys = []string{
	"size", "length", "fileSize", "filesize", "content_length",
	"contentLength", "sizeInBytes", "size_bytes", "byteSize", "bytes",
}

type PromptFilesHandler struct {
	client *gateway.Client
}

func NewPromptFilesHandler(client *gateway.Client) *PromptFilesHandler {
	return &PromptFilesHandler{client: client}
}

// GET /ai-prompt-files/:prompt_id
func (h *PromptFilesHandler) List(c *gin.Context) {
	promptID := c.Param("prompt_id")
	files, err := h.listFiles(c, promptID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"promptId": promptID, "files": files})
}

// GET /ai-prompt-files/:prompt_id/:file_id
// Returns the file metadata plus a base64 "data" payload.
func (h *PromptFilesHandler) Get(c *gin.Context) {
	promptID := c.Param("prompt_id")
	fileID := c.Param("file_id")

	meta, raw, err := h.fetchFile(c, promptID, fileID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	encoded := ""
	if len(raw) > 0 {
		encoded = base64.StdEncoding.EncodeToString(raw)
	}
	if size, _ := meta["size"].(int); size == 0 && len(raw) > 0 {
		meta["size"] = len(raw)
	}

	payload := gin.H{"promptId": promptID, "data": encoded}
	for key, value := range meta {
		payload[key] = value
	}
	response.RespondOK(c, payload)
}

// GET /ai-prompt-files-download/:prompt_id/:file_id
// Raw bytes with an attachment disposition, for browser downloads.
func (h *PromptFilesHandler) Download(c *gin.Context) {
	promptID := c.Param("prompt_id")
	fileID := c.Param("file_id")

	meta, raw, err := h.fetchFile(c, promptID, fileID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	contentType, _ := meta["content_type"].(string)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename, _ := meta["filename"].(string)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, raw)
}

// POST /ai-prompt-files/:prompt_id
// Multipart upload; accepts both "file" and "files" form fields.
func (h *PromptFilesHandler) Upload(c *gin.Context) {
	promptID := c.Param("prompt_id")

	form, err := c.MultipartForm()
	if err != nil {
		response.RespondAPIError(c, apierr.Validation("No file provided"))
		return
	}
	headers := form.File["file"]
	headers = append(headers, form.File["files"]...)
	if len(headers) == 0 {
		response.RespondAPIError(c, apierr.Validation("No file provided"))
		return
	}

	var uploads []gateway.FileUpload
	var total int64
	for _, header := range headers {
		total += header.Size
		if total > maxUploadBytes {
			response.RespondAPIError(c, apierr.Validation("Upload too large"))
			return
		}
		file, err := header.Open()
		if err != nil {
			response.RespondAPIError(c, apierr.Validationf("Unreadable file %q", header.Filename))
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		file.Close()
		if err != nil {
			response.RespondAPIError(c, apierr.Validationf("Unreadable file %q", header.Filename))
			return
		}
		uploads = append(uploads, gateway.FileUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	result := h.client.UploadFiles(c.Request.Context(), promptID, uploads)
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}

	uploaded := serializeFileList(result)
	response.RespondOK(c, gin.H{"promptId": promptID, "uploaded": uploaded})
}

// DELETE /ai-prompt-files/:prompt_id/:file_id
func (h *PromptFilesHandler) Delete(c *gin.Context) {
	promptID := c.Param("prompt_id")
	fileID := c.Param("file_id")
	if fileID == "" {
		response.RespondAPIError(c, apierr.Validation("Missing file ID"))
		return
	}

	result := h.client.DeleteFile(c.Request.Context(), promptID, fileID)
	if result.Failed() {
		response.RespondAPIError(c, upstreamError(result))
		return
	}
	response.RespondOK(c, gin.H{"promptId": promptID, "deleted": fileID})
}

func (h *PromptFilesHandler) listFiles(c *gin.Context, promptID string) ([]map[string]any, error) {
	result := h.client.ListFiles(c.Request.Context(), promptID)
	if result.Failed() {
		return nil, upstreamError(result)
	}
	return serializeFileList(result), nil
}

// fetchFile resolves the file metadata from the listing, then pulls
// the raw bytes.
func (h *PromptFilesHandler) fetchFile(c *gin.Context, promptID, fileID string) (map[string]any, []byte, error) {
	files, err := h.listFiles(c, promptID)
	if err != nil {
		return nil, nil, err
	}
	var meta map[string]any
	for _, file := range files {
		if id, _ := file["id"].(string); id == fileID {
			meta = file
			break
		}
	}
	if meta == nil {
		return nil, nil, apierr.NotFound(fmt.Sprintf("File '%s' not found", fileID))
	}

	download := h.client.DownloadFile(c.Request.Context(), promptID, fileID)
	if download.Failed() {
		return nil, nil, upstreamError(download)
	}
	return meta, download.Content, nil
}

func serializeFileList(result gateway.Result) []map[string]any {
	var raw []any
	switch {
	case result.List != nil:
		raw = result.List
	case result.Data != nil:
		if list, ok := result.Data["files"].([]any); ok {
			raw = list
		} else if list, ok := result.Data["items"].([]any); ok {
			raw = list
		}
	}
	files := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if record, ok := item.(map[string]any); ok {
			files = append(files, serializeFile(record))
		}
	}
	return files
}

// serializeFile normalizes one gateway file record to
// {id, filename, size, created, content_type}.
func serializeFile(file map[string]any) map[string]any {
	filename := firstNonEmpty(stringField(file, "filename"), stringField(file, "name"))

	size := 0
	for _, key := range fileSizeKeys {
		if value, ok := numberField(file, key); ok {
			size = value
			break
		}
	}

	contentType := firstNonEmpty(
		stringField(file, "content_type"),
		stringField(file, "contentType"),
		stringField(file, "mimetype"),
		stringField(file, "type"),
		mime.TypeByExtension(filepath.Ext(filename)),
		"application/octet-stream",
	)

	return map[string]any{
		"id":           firstNonEmpty(stringField(file, "id"), stringField(file, "_id")),
		"filename":     filename,
		"size":         size,
		"created":      firstKey(file, "created", "createdAt", "created_at"),
		"content_type": contentType,
	}
}

func numberField(m map[string]any, key string) (int, bool) {
	switch value := m[key].(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	}
	return 0, false
}
