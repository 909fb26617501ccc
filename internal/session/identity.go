package session

import "errors"

// TypeEmployee is the identity type allowed to submit and review bills
const TypeEmployee = "Employee"

// ErrNotEmployee is returned when an identity is missing or is not an employee
var ErrNotEmployee = errors.New("session is not an employee session")

// Identity is the user on whose behalf the controllers act
type Identity struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// Employee returns an employee identity for email
func Employee(email string) Identity {
	return Identity{Type: TypeEmployee, Email: email}
}

// RequireEmployee checks that the identity belongs to an employee
func (i Identity) RequireEmployee() error {
	if i.Type != TypeEmployee || i.Email == "" {
		return ErrNotEmployee
	}
	return nil
}
