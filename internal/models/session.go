package models

// SessionState is the server-side state bound to one transport session id.
// The zero value is an anonymous session with an empty cart.
type SessionState struct {
	UserID string     `json:"user_id,omitempty"`
	Cart   []CartItem `json:"cart,omitempty"`
}

// Clone returns a deep copy so stores never share the cart slice with callers.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return &SessionState{}
	}
	out := &SessionState{UserID: s.UserID}
	if len(s.Cart) > 0 {
		out.Cart = make([]CartItem, len(s.Cart))
		copy(out.Cart, s.Cart)
	}
	return out
}
