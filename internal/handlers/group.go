package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-chat/internal/authz"
	"campus-chat/internal/chat"
	"campus-chat/internal/middleware"
	"campus-chat/internal/observability"
	"campus-chat/internal/telemetry"
	apperrors "campus-chat/pkg/errors"
)

const maxAttachmentBytes = 16 << 20

// GroupHandler exposes the chat subsystem over HTTP.
type GroupHandler struct {
	resolver *authz.Resolver
	registry *chat.GroupRegistry
	stream   *chat.MessageStream
	bridge   *chat.AttachmentBridge
	audit    *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(resolver *authz.Resolver, registry *chat.GroupRegistry, stream *chat.MessageStream, bridge *chat.AttachmentBridge, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		resolver: resolver,
		registry: registry,
		stream:   stream,
		bridge:   bridge,
		audit:    audit,
	}
}

// ListGroups returns the groups visible to the caller. Visibility is
// recomputed from enrollment/ownership on every request.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	groups, err := h.resolver.ResolveVisibleGroups(c.Request.Context(), ident)
	if err != nil {
		h.emitAudit(c, "ERROR", "resolve_groups", "failed to resolve visible groups")
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// CreateGroup handles POST /groups (lecturer only).
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	var req struct {
		CourseID    string `json:"course_id" binding:"required"`
		DisplayName string `json:"display_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "create_group", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.registry.CreateGroup(c.Request.Context(), ident, req.CourseID, req.DisplayName)
	if err != nil {
		h.emitAudit(c, "ERROR", "create_group", "group creation rejected")
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "create_group", "group created")
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// DeleteGroup handles DELETE /groups/:group_id (owner only, cascading).
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	groupID := c.Param("group_id")
	if err := h.registry.DeleteGroup(c.Request.Context(), ident, groupID); err != nil {
		h.emitAudit(c, "ERROR", "delete_group", "group deletion rejected")
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "could not delete group"})
		return
	}

	h.emitAudit(c, "INFO", "delete_group", "group deleted")
	c.Status(http.StatusNoContent)
}

// GetGroupMessages returns the group's ordered message log.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	groupID := c.Param("group_id")
	if _, err := h.resolver.VisibleGroup(c.Request.Context(), ident, groupID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "not authorized for group"})
		return
	}

	msgs, err := h.stream.History(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostGroupMessage appends a message and fans it out to subscribers.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	groupID := c.Param("group_id")
	if _, err := h.resolver.VisibleGroup(c.Request.Context(), ident, groupID); err != nil {
		h.emitAudit(c, "ERROR", "send_message", "not authorized for group")
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "not authorized for group"})
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.stream.Send(c.Request.Context(), groupID, ident, req.Body, nil, "")
	if err != nil {
		h.emitAudit(c, "ERROR", "send_message", "failed to store message")
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "failed to store message"})
		return
	}

	observability.IncMessageSent(string(ident.Role))
	h.emitAudit(c, "INFO", "send_message", "message sent")
	c.JSON(http.StatusCreated, msg)
}

// UploadAttachment handles POST /groups/:group_id/attachments: lecturer
// uploads a file which lands in the message stream as an attachment
// message. Upload and send are a compensating pair; a failed send removes
// the uploaded blob.
func (h *GroupHandler) UploadAttachment(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no identity"})
		return
	}

	groupID := c.Param("group_id")
	if !authz.CanUpload(ident) {
		observability.IncAttachmentUpload("forbidden")
		h.emitAudit(c, "ERROR", "upload_attachment", "upload forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "only lecturers may upload attachments"})
		return
	}
	if _, err := h.resolver.VisibleGroup(c.Request.Context(), ident, groupID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "not authorized for group"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fileHeader.Size > maxAttachmentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	caption := c.PostForm("caption")

	msg, err := h.bridge.SendWithAttachment(c.Request.Context(), groupID, ident, data, fileHeader.Filename, mimeType, caption)
	if err != nil {
		observability.IncAttachmentUpload("failed")
		h.emitAudit(c, "ERROR", "upload_attachment", "attachment upload failed")
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": "attachment upload failed"})
		return
	}

	observability.IncAttachmentUpload("ok")
	h.emitAudit(c, "INFO", "upload_attachment", "attachment uploaded")
	c.JSON(http.StatusCreated, msg)
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, action, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, action, text, requestIDFromContext(c), userIDFromContext(c))
}
