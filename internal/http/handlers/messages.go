package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chats-be/internal/filters"
	"chats-be/internal/http/middleware"
	"chats-be/internal/models"
	"chats-be/internal/pagination"
	"chats-be/internal/permissions"
	"chats-be/internal/store"
)

type MessageHandler struct {
	DB        *gorm.DB
	Store     *store.Store
	Perm      permissions.Permission
	Paginator pagination.Paginator
	Log       *zap.Logger
}

func withSender(db *gorm.DB) *gorm.DB {
	return db.Preload("Sender")
}

// scoped is every message in a conversation the caller takes part in.
func (h *MessageHandler) scoped(c *gin.Context) *gorm.DB {
	u := middleware.MustUser(c)
	return h.DB.WithContext(c.Request.Context()).
		Model(&models.Message{}).
		Scopes(filters.InParticipatingConversations(u.ID))
}

func (h *MessageHandler) object(c *gin.Context) (*models.Message, bool) {
	id, ok := idParam(c)
	if !ok {
		notFound(c)
		return nil, false
	}
	var msg models.Message
	if err := h.scoped(c).Scopes(withSender).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
		} else {
			serverError(c, h.Log, "load message", err)
		}
		return nil, false
	}
	if !objectAllowed(c, h.Perm, &msg) {
		return nil, false
	}
	return &msg, true
}

func (h *MessageHandler) paginate(c *gin.Context, base *gorm.DB, order func(*gorm.DB) *gorm.DB) {
	page, err := pagination.Paginate[models.Message](c.Request, h.Paginator, base, order, withSender)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPage) {
			invalidPage(c)
			return
		}
		serverError(c, h.Log, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MessageHandler) List(c *gin.Context) {
	q := c.Request.URL.Query()
	scopes, err := filters.MessageFilters.Scopes(q)
	if err != nil {
		var verr filters.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, verr)
			return
		}
		serverError(c, h.Log, "build message filters", err)
		return
	}
	base := h.scoped(c).Scopes(scopes...).Scopes(filters.MessageSearch.Scope(q))
	h.paginate(c, base, filters.MessageOrdering.Scope(q))
}

type messageReq struct {
	Conversation any     `json:"conversation"`
	MessageBody  *string `json:"message_body"`
}

// Create posts a message as the caller. Any sender in the payload is ignored.
func (h *MessageHandler) Create(c *gin.Context) {
	u := middleware.MustUser(c)
	ctx := c.Request.Context()

	var req messageReq
	if !bindJSON(c, &req) {
		return
	}
	errs := fieldErrors{}
	body := text(errs, "message_body", req.MessageBody, true)
	convID, hasConv, problem := primaryKey(req.Conversation)
	switch {
	case problem != "":
		errs.add("conversation", problem)
	case hasConv:
		exists, err := h.Store.ConversationExists(ctx, convID)
		if err != nil {
			serverError(c, h.Log, "check conversation", err)
			return
		}
		if !exists {
			errs.add("conversation", invalidPK(convID))
		}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	if !hasConv {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "conversation field is required."})
		return
	}

	// no object exists yet for the permission's object phase to run on
	member, err := h.Store.IsParticipant(ctx, convID, u.ID)
	if err != nil {
		serverError(c, h.Log, "check participant", err)
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You are not a participant of this conversation"})
		return
	}

	msg := models.Message{
		ConversationID: convID,
		SenderID:       u.ID,
		MessageBody:    body,
	}
	if err := h.DB.WithContext(ctx).Omit(clause.Associations).Create(&msg).Error; err != nil {
		serverError(c, h.Log, "create message", err)
		return
	}
	msg.Sender = *u

	c.Header("Location", fmt.Sprintf("/api/messages/%d/", msg.ID))
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) Retrieve(c *gin.Context) {
	msg, ok := h.object(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, msg)
}

// Update edits the body only; conversation and sender are fixed at creation.
func (h *MessageHandler) Update(c *gin.Context) {
	msg, ok := h.object(c)
	if !ok {
		return
	}
	partial := c.Request.Method == http.MethodPatch

	var req messageReq
	if !bindJSON(c, &req) {
		return
	}
	errs := fieldErrors{}
	body := text(errs, "message_body", req.MessageBody, !partial)
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	if req.MessageBody != nil {
		err := h.DB.WithContext(c.Request.Context()).
			Model(&models.Message{}).
			Where("id = ?", msg.ID).
			Update("message_body", body).Error
		if err != nil {
			serverError(c, h.Log, "update message", err)
			return
		}
		msg.MessageBody = body
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Destroy(c *gin.Context) {
	msg, ok := h.object(c)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(&models.Message{}, msg.ID).Error; err != nil {
		serverError(c, h.Log, "delete message", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ConversationMessages pages through one conversation. A conversation the
// caller is not part of is reported as not found, same as a missing one.
func (h *MessageHandler) ConversationMessages(c *gin.Context) {
	u := middleware.MustUser(c)
	raw := c.Query("conversation_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id parameter is required"})
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		notFound(c)
		return
	}

	var conv models.Conversation
	err = h.DB.WithContext(c.Request.Context()).
		Model(&models.Conversation{}).
		Scopes(filters.ParticipatingConversations(u.ID)).
		First(&conv, uint(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
			return
		}
		serverError(c, h.Log, "load conversation", err)
		return
	}

	base := h.DB.WithContext(c.Request.Context()).
		Model(&models.Message{}).
		Where("messages.conversation_id = ?", conv.ID)
	h.paginate(c, base, filters.Chronological)
}
