package domain

import "time"

// Turn is one message in a conversation's ordered history.
type Turn struct {
	Role Role
	Text string
	At   time.Time
}
