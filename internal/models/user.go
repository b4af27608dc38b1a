package models

// User is a recipient record from the user-directory service.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Role   string `json:"role,omitempty"`
}
