package control

import (
	"time"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/session"
)

// StatusSource is implemented by every watch session.
type StatusSource interface {
	Status() session.Status
}

type StatusReply struct {
	Session session.Status `json:"session"`

	Since time.Time `json:"since"`
}
