package message

import (
	"time"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

const ReplyPrefix = "Re: "

type Message struct {
	ID       string    `json:"_id"`
	Sender   user.Ref  `json:"sender"`
	Receiver user.Ref  `json:"receiver"`
	Subject  string    `json:"subject"`
	Content  string    `json:"content"`
	SentDate time.Time `json:"sentDate"`
	Read     bool      `json:"read"`
}

func (m Message) IsFor(userID string) bool {
	return m.Receiver.ID == userID
}

func (m Message) IsFrom(userID string) bool {
	return m.Sender.ID == userID
}

// ReplySubject prefixes the subject once; replying to a reply does not stack prefixes.
func (m Message) ReplySubject() string {
	if len(m.Subject) >= len(ReplyPrefix) && m.Subject[:len(ReplyPrefix)] == ReplyPrefix {
		return m.Subject
	}
	return ReplyPrefix + m.Subject
}
