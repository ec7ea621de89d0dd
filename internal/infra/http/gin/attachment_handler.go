package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"talenthub/internal/app/dto"
	"talenthub/internal/infra/storage/s3"
)

const maxAttachmentSize = 25 << 20 // 25 MiB

// AttachmentHandler accepts a multipart upload and returns the attachment
// descriptor the client then embeds into a message send.
type AttachmentHandler struct {
	Uploader s3.Uploader
	Logger   *slog.Logger
}

func (h AttachmentHandler) Upload(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "attachment exceeds the size limit"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer file.Close()

	name := filepath.Base(fileHeader.Filename)
	mimeType := fileHeader.Header.Get("Content-Type")
	key := fmt.Sprintf("attachments/%s/%s-%s", p.ID, uuid.NewString(), name)

	publicURL, err := h.Uploader.Upload(c.Request.Context(), key, file, fileHeader.Size, mimeType)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("attachment upload failed", "error", err, "user_id", p.ID, "name", name)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attachment upload failed"})
		return
	}

	c.JSON(http.StatusCreated, dto.Attachment{
		URL:      publicURL,
		Type:     attachmentType(mimeType),
		Name:     name,
		Size:     fileHeader.Size,
		MimeType: mimeType,
	})
}

func attachmentType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	default:
		return "file"
	}
}
