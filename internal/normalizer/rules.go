package normalizer

import (
	"fmt"

	"github.com/rasool-click/wessaal-relay/internal/model"
)

// Per-field size bounds. Bounding every field keeps a single oversized
// upstream payload from amplifying into unbounded memory or network
// use downstream.
const (
	snippetLimit   = 256
	maxPhones      = 3
	maxEmails      = 2
	maxGenericKeys = 6
)

// messageRule handles messages.upsert.
type messageRule struct{}

func (messageRule) Event() string { return "messages.upsert" }

func (messageRule) Apply(payload any, env *model.Envelope) error {
	m, ok := asMap(payload)
	if !ok {
		return fmt.Errorf("messages.upsert payload is not an object")
	}
	src := m
	if inner, ok := asMap(m["message"]); ok {
		src = inner
	}

	env.Type = "message"
	env.ID = firstString(src, "id", "_id", "messageId")
	env.Actor = firstString(src, "from", "author", "sender")

	attachments := 0
	if arr, ok := asSlice(src["attachments"]); ok {
		attachments = len(arr)
	}

	env.Body = map[string]any{
		"id":               env.ID,
		"from":             env.Actor,
		"snippet":          truncateRunes(nonEmptyString(src["text"]), snippetLimit),
		"timestamp":        src["timestamp"],
		"attachmentsCount": attachments,
	}
	return nil
}

// contactRule handles contacts.update.
type contactRule struct{}

func (contactRule) Event() string { return "contacts.update" }

func (contactRule) Apply(payload any, env *model.Envelope) error {
	m, ok := asMap(payload)
	if !ok {
		return fmt.Errorf("contacts.update payload is not an object")
	}
	src := m
	if inner, ok := asMap(m["contact"]); ok {
		src = inner
	}

	env.Type = "contact"
	env.ID = firstString(src, "id", "_id", "contactId")

	env.Body = map[string]any{
		"id":     env.ID,
		"name":   nonEmptyString(src["name"]),
		"phones": capSlice(src["phones"], maxPhones),
		"emails": capSlice(src["emails"], maxEmails),
	}
	return nil
}

// chatRule handles chats.update.
type chatRule struct{}

func (chatRule) Event() string { return "chats.update" }

func (chatRule) Apply(payload any, env *model.Envelope) error {
	m, ok := asMap(payload)
	if !ok {
		return fmt.Errorf("chats.update payload is not an object")
	}
	src := m
	if inner, ok := asMap(m["chat"]); ok {
		src = inner
	}

	env.Type = "chat"
	env.ID = firstString(src, "id", "_id", "chatId")

	participants := 0
	if arr, ok := asSlice(src["participants"]); ok {
		participants = len(arr)
	} else if n, ok := asInt(src["participantsCount"]); ok {
		participants = n
	}

	title := nonEmptyString(src["title"])
	if title == "" {
		title = nonEmptyString(src["subject"])
	}
	if title == "" {
		title = nonEmptyString(src["name"])
	}

	env.Body = map[string]any{
		"id":                env.ID,
		"title":             title,
		"participantsCount": participants,
	}
	return nil
}

// verbatimRule passes the full payload through untouched. Used for
// qrcode.updated and connection.update, whose payloads are consumed
// whole by clients.
type verbatimRule struct {
	event string
	kind  string
}

func (r verbatimRule) Event() string { return r.event }

func (r verbatimRule) Apply(payload any, env *model.Envelope) error {
	env.Type = r.kind
	env.Body = payload
	return nil
}

// applyGeneric is the fallback for unrecognized event names. It keeps
// up to six top-level keys, each individually size-capped, so unknown
// upstream events stay observable without leaking unbounded or
// unexpected fields to consumers.
func applyGeneric(payload any, env *model.Envelope) {
	m, ok := asMap(payload)
	if !ok {
		env.Type = "generic"
		env.Body = capValue(payload)
		return
	}

	env.Type = nonEmptyString(m["type"])
	if env.Type == "" {
		env.Type = nonEmptyString(m["eventType"])
	}
	if env.Type == "" {
		env.Type = "generic"
	}

	body := make(map[string]any, maxGenericKeys)
	for _, k := range sortedKeys(m) {
		if len(body) == maxGenericKeys {
			break
		}
		body[k] = capValue(m[k])
	}
	env.Body = body
}
