package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chats-be/internal/filters"
	"chats-be/internal/http/middleware"
	"chats-be/internal/models"
	"chats-be/internal/pagination"
	"chats-be/internal/permissions"
	"chats-be/internal/store"
)

type ConversationHandler struct {
	DB        *gorm.DB
	Store     *store.Store
	Perm      permissions.Permission
	Paginator pagination.Paginator
	Log       *zap.Logger
}

func withParticipants(db *gorm.DB) *gorm.DB {
	return db.Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("users.id") })
}

// scoped is every conversation the caller takes part in.
func (h *ConversationHandler) scoped(c *gin.Context) *gorm.DB {
	u := middleware.MustUser(c)
	return h.DB.WithContext(c.Request.Context()).
		Model(&models.Conversation{}).
		Scopes(filters.ParticipatingConversations(u.ID))
}

// object resolves :id within the caller's conversations and runs the object
// level permission check. It writes the error response when it returns false.
func (h *ConversationHandler) object(c *gin.Context) (*models.Conversation, bool) {
	id, ok := idParam(c)
	if !ok {
		notFound(c)
		return nil, false
	}
	var conv models.Conversation
	if err := h.scoped(c).Scopes(withParticipants).First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
		} else {
			serverError(c, h.Log, "load conversation", err)
		}
		return nil, false
	}
	if !objectAllowed(c, h.Perm, &conv) {
		return nil, false
	}
	return &conv, true
}

func (h *ConversationHandler) reload(c *gin.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := h.DB.WithContext(c.Request.Context()).Scopes(withParticipants).First(&conv, id).Error
	return &conv, err
}

func (h *ConversationHandler) List(c *gin.Context) {
	q := c.Request.URL.Query()
	base := h.scoped(c).Scopes(filters.ConversationSearch.Scope(q))

	page, err := pagination.Paginate[models.Conversation](c.Request, h.Paginator, base, filters.NewestConversations, withParticipants)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPage) {
			invalidPage(c)
			return
		}
		serverError(c, h.Log, "list conversations", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type conversationReq struct {
	Participants *[]uint `json:"participants"`
}

// participants loads the users named in ids; unknown ids are reported in errs.
func (h *ConversationHandler) participants(c *gin.Context, ids []uint, errs fieldErrors) ([]models.User, error) {
	seen := map[uint]bool{}
	uniq := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	users, missing, err := h.Store.UsersByIDs(c.Request.Context(), uniq)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		errs.add("participants", invalidPK(id))
	}
	return users, nil
}

// Create stores the conversation, then adds the caller to it whether or not
// they were listed.
func (h *ConversationHandler) Create(c *gin.Context) {
	u := middleware.MustUser(c)

	var req conversationReq
	if !bindJSON(c, &req) {
		return
	}
	var ids []uint
	if req.Participants != nil {
		ids = *req.Participants
	}
	errs := fieldErrors{}
	users, err := h.participants(c, ids, errs)
	if err != nil {
		serverError(c, h.Log, "load participants", err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	conv := models.Conversation{Participants: users}
	if err := db.Omit("Participants.*").Create(&conv).Error; err != nil {
		serverError(c, h.Log, "create conversation", err)
		return
	}
	if err := db.Model(&conv).Association("Participants").Append(u); err != nil {
		serverError(c, h.Log, "add creator", err)
		return
	}

	out, err := h.reload(c, conv.ID)
	if err != nil {
		serverError(c, h.Log, "reload conversation", err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/conversations/%d/", out.ID))
	c.JSON(http.StatusCreated, out)
}

func (h *ConversationHandler) Retrieve(c *gin.Context) {
	conv, ok := h.object(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Update replaces the participant set. PUT requires participants; PATCH
// leaves the set alone when it is omitted.
func (h *ConversationHandler) Update(c *gin.Context) {
	conv, ok := h.object(c)
	if !ok {
		return
	}
	partial := c.Request.Method == http.MethodPatch

	var req conversationReq
	if !bindJSON(c, &req) {
		return
	}
	errs := fieldErrors{}
	if req.Participants == nil {
		if !partial {
			errs.add("participants", msgRequired)
			c.JSON(http.StatusBadRequest, errs)
			return
		}
		c.JSON(http.StatusOK, conv)
		return
	}

	users, err := h.participants(c, *req.Participants, errs)
	if err != nil {
		serverError(c, h.Log, "load participants", err)
		return
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}

	assoc := h.DB.WithContext(c.Request.Context()).Model(conv).Association("Participants")
	if len(users) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(users)
	}
	if err != nil {
		serverError(c, h.Log, "replace participants", err)
		return
	}

	out, err := h.reload(c, conv.ID)
	if err != nil {
		serverError(c, h.Log, "reload conversation", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Destroy removes the conversation with its messages and memberships.
func (h *ConversationHandler) Destroy(c *gin.Context) {
	conv, ok := h.object(c)
	if !ok {
		return
	}
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Model(conv).Association("Participants").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Conversation{}, conv.ID).Error
	})
	if err != nil {
		serverError(c, h.Log, "delete conversation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addParticipantReq struct {
	UserID any `json:"user_id"`
}

func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	conv, ok := h.object(c)
	if !ok {
		return
	}

	var req addParticipantReq
	if !bindJSON(c, &req) {
		return
	}
	userID, present, valid := parseUserID(req.UserID)
	if !present {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be an integer"})
		return
	}

	user, err := h.Store.UserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		serverError(c, h.Log, "load user", err)
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Model(conv).Association("Participants").Append(user); err != nil {
		serverError(c, h.Log, "add participant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Participant added successfully"})
}

// parseUserID accepts a JSON number or numeric string. Falsy values (null, 0,
// "", false) count as absent.
func parseUserID(v any) (id uint, present, valid bool) {
	switch x := v.(type) {
	case nil:
		return 0, false, false
	case bool:
		return 0, x, false
	case float64:
		if x == 0 {
			return 0, false, false
		}
		if x < 0 || x != math.Trunc(x) || x > math.MaxUint32 {
			return 0, true, false
		}
		return uint(x), true, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, false
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, true, false
		}
		return uint(n), true, true
	}
	return 0, true, false
}

// Messages lists the whole conversation oldest first, without pagination.
func (h *ConversationHandler) Messages(c *gin.Context) {
	conv, ok := h.object(c)
	if !ok {
		return
	}
	msgs := []models.Message{}
	err := h.DB.WithContext(c.Request.Context()).
		Where("messages.conversation_id = ?", conv.ID).
		Scopes(filters.Chronological).
		Preload("Sender").
		Find(&msgs).Error
	if err != nil {
		serverError(c, h.Log, "list conversation messages", err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
