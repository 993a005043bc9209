package realtime

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/task-realtime-api/internal/dto"
)

// Outbound event names.
const (
	EventTaskCreated     = "task:created"
	EventTaskUpdated     = "task:updated"
	EventTaskDeleted     = "task:deleted"
	EventNotificationNew = "notification:new"
	EventUserTyping      = "task:userTyping"
	EventUserJoined      = "user:joined"
	EventUserLeft        = "user:left"
)

// Inbound event names.
const (
	EventTaskSubscribe   = "task:subscribe"
	EventTaskUnsubscribe = "task:unsubscribe"
	EventTaskTyping      = "task:typing"
)

// Event is the closed set of messages the hub pushes to clients.
type Event interface {
	Name() string
	payload() any
}

type TaskCreated struct {
	Task dto.TaskDTO
}

func (TaskCreated) Name() string   { return EventTaskCreated }
func (e TaskCreated) payload() any { return e.Task }

type TaskUpdated struct {
	Task    dto.TaskDTO       `json:"task"`
	Changes []dto.FieldChange `json:"changes"`
}

func (TaskUpdated) Name() string   { return EventTaskUpdated }
func (e TaskUpdated) payload() any { return e }

type TaskDeleted struct {
	TaskID string `json:"taskId"`
}

func (TaskDeleted) Name() string   { return EventTaskDeleted }
func (e TaskDeleted) payload() any { return e }

type NotificationNew struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	TaskID  *string `json:"taskId"`
}

func (NotificationNew) Name() string   { return EventNotificationNew }
func (e NotificationNew) payload() any { return e }

type UserTyping struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

func (UserTyping) Name() string   { return EventUserTyping }
func (e UserTyping) payload() any { return e }

type UserJoined struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserJoined) Name() string   { return EventUserJoined }
func (e UserJoined) payload() any { return e }

type UserLeft struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserLeft) Name() string   { return EventUserLeft }
func (e UserLeft) payload() any { return e }

// Message is the wire envelope shared by both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode renders an event as {"event": name, "data": payload}.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e.payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: e.Name(), Data: data})
}

type typingPayload struct {
	TaskID   string `json:"taskId"`
	IsTyping bool   `json:"isTyping"`
}

// NotificationEvent builds the targeted event for a persisted notification.
func NotificationEvent(n dto.NotificationDTO) NotificationNew {
	return NotificationNew{Type: n.Type, Message: n.Message, TaskID: n.TaskID}
}
