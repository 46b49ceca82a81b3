package models

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

// User is the read-only slice of the user collaborator this service needs.
type User struct {
	ID       int      `json:"id"`
	Nickname string   `json:"nickname"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}
