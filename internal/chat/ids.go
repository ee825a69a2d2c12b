package chat

import "github.com/google/uuid"

// NewID returns a random identifier for chats and nodes.
func NewID() string {
	return uuid.NewString()
}

// AnonymizedID derives a participant id that is stable within a chat but
// reveals nothing about the platform account behind it.
func AnonymizedID(chatID, kind, participantID string) string {
	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte("statstage:"+chatID))
	return uuid.NewSHA1(ns, []byte(kind+":"+participantID)).String()
}
