package domain

import (
	"strings"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message in a conversation session.
type Turn struct {
	Role      Role
	Text      string
	CreatedAt time.Time
}

// NewUserTurn creates a user turn stamped with the current time.
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, CreatedAt: time.Now().UTC()}
}

// NewModelTurn creates a model turn stamped with the current time.
func NewModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text, CreatedAt: time.Now().UTC()}
}

// UserType selects the response style directive.
type UserType string

const (
	UserTypeStudent    UserType = "student"
	UserTypeTeacher    UserType = "teacher"
	UserTypeResearcher UserType = "researcher"
	UserTypeGeneral    UserType = "general"
)

// ParseUserType maps s to a known user type. Unrecognized values fall back
// to UserTypeGeneral; this never fails.
func ParseUserType(s string) UserType {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeStudent:
		return UserTypeStudent
	case UserTypeTeacher:
		return UserTypeTeacher
	case UserTypeResearcher:
		return UserTypeResearcher
	default:
		return UserTypeGeneral
	}
}

// Prompt is the composed model input for one chat turn.
type Prompt struct {
	SystemInstruction string
	UserPrompt        string
}
