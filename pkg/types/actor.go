package types

// Actor is the authenticated caller as reported by the identity provider.
type Actor struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Anonymous bool   `json:"anonymous"`
	Admin     bool   `json:"admin"`
}

// DisplayEmail falls back to a placeholder for anonymous guests.
func (a *Actor) DisplayEmail() string {
	if a == nil || a.Email == "" {
		return "anonymous@guest"
	}
	return a.Email
}
