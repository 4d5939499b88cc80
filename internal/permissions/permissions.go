// Package permissions gates access to conversation scoped resources in two
// phases: once per request before any object is resolved, and once per object
// after a controller has narrowed the request to a single conversation or message.
package permissions

import (
	"context"

	"chats-be/internal/models"
)

// Request is what a permission needs to know about the caller. User is nil for
// anonymous requests.
type Request struct {
	User   *models.User
	Method string
}

type Permission interface {
	HasPermission(r Request) bool
	HasObjectPermission(ctx context.Context, r Request, obj any) bool
}

// DeniedMessage is the detail returned when an object level check fails.
const DeniedMessage = "Only conversation participants can access this resource."

type IsAuthenticated struct{}

func (IsAuthenticated) HasPermission(r Request) bool { return r.User != nil }

func (IsAuthenticated) HasObjectPermission(context.Context, Request, any) bool { return true }

type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
}

// IsParticipantOfConversation allows authenticated callers through the request
// phase for every method, and grants object access only to participants of the
// object's conversation. Anything it cannot resolve is denied.
type IsParticipantOfConversation struct {
	Checker ParticipantChecker
}

func (p IsParticipantOfConversation) HasPermission(r Request) bool {
	return r.User != nil
}

func (p IsParticipantOfConversation) HasObjectPermission(ctx context.Context, r Request, obj any) bool {
	if r.User == nil || p.Checker == nil {
		return false
	}
	convID, ok := conversationOf(obj)
	if !ok {
		return false
	}
	member, err := p.Checker.IsParticipant(ctx, convID, r.User.ID)
	if err != nil {
		return false
	}
	return member
}

// conversationOf resolves the conversation a message belongs to, or the
// conversation itself.
func conversationOf(obj any) (uint, bool) {
	var id uint
	switch o := obj.(type) {
	case *models.Message:
		if o == nil {
			return 0, false
		}
		id = o.ConversationID
	case models.Message:
		id = o.ConversationID
	case *models.Conversation:
		if o == nil {
			return 0, false
		}
		id = o.ID
	case models.Conversation:
		id = o.ID
	default:
		return 0, false
	}
	return id, id != 0
}

type all []Permission

// All grants access only when every permission does.
func All(perms ...Permission) Permission {
	return all(perms)
}

func (a all) HasPermission(r Request) bool {
	for _, p := range a {
		if !p.HasPermission(r) {
			return false
		}
	}
	return true
}

func (a all) HasObjectPermission(ctx context.Context, r Request, obj any) bool {
	for _, p := range a {
		if !p.HasObjectPermission(ctx, r, obj) {
			return false
		}
	}
	return true
}
