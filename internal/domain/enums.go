package domain

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// UserType is the caller's account type. It selects the system prompt.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeParent  UserType = "parent"
	UserTypeAdmin   UserType = "admin"
	UserTypeUnknown UserType = "unknown"
)

// ParseUserType maps a raw value to a UserType, defaulting to UserTypeUnknown.
func ParseUserType(s string) UserType {
	switch UserType(s) {
	case UserTypeStudent, UserTypeParent, UserTypeAdmin:
		return UserType(s)
	}
	return UserTypeUnknown
}

// UseCase selects generation parameters appropriate to a task type.
type UseCase string

const (
	UseCaseCoding      UseCase = "coding"
	UseCaseData        UseCase = "data"
	UseCaseGeneral     UseCase = "general"
	UseCaseTranslation UseCase = "translation"
	UseCaseCreative    UseCase = "creative"
)

// BackendAuto asks the selector to pick a backend from credential availability.
const BackendAuto = "auto"

// Prompt windows.
const (
	LiveHistoryWindow     = 10
	RealtimeHistoryWindow = 20
)
