package entity

// User is a person who requests or approves spend. Read-only to the engine.
type User struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	ManagerID  *int64 `json:"manager_id,omitempty"`
	IsActive   bool   `json:"is_active"`
}
