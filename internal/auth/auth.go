package auth

import (
	"fmt"
	"sync"
)

// Identity is what the identity provider knows about the signed-in user.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Provider pushes the current identity (or nil when signed out) to each
// subscriber on every sign-in and sign-out. The returned dispose function
// stops delivery.
type Provider interface {
	Subscribe(callback func(*Identity)) (dispose func())
}

// Error codes surfaced by identity providers.
const (
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeTooManyRequests   = "auth/too-many-requests"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeNetworkFailure    = "auth/network-request-failed"
)

var errorMessages = map[string]string{
	CodeUserNotFound:      "Usuário não encontrado.",
	CodeWrongPassword:     "Senha incorreta.",
	CodeEmailInUse:        "Este email já está em uso.",
	CodeWeakPassword:      "A senha deve ter pelo menos 6 caracteres.",
	CodeInvalidEmail:      "Email inválido.",
	CodeTooManyRequests:   "Muitas tentativas. Tente novamente mais tarde.",
	CodeInvalidCredential: "Credenciais inválidas.",
	CodeNetworkFailure:    "Erro de rede. Verifique sua conexão.",
}

// Error is a non-fatal authentication failure carrying a fixed user-readable
// message. The form is always re-offered.
type Error struct {
	Code string
}

func (e *Error) Error() string { return e.Code }

// Message returns the user-readable text for the error code.
func (e *Error) Message() string {
	if msg, ok := errorMessages[e.Code]; ok {
		return msg
	}
	return fmt.Sprintf("Erro ao autenticar (%s). Tente novamente.", e.Code)
}

// NewError wraps a provider error code.
func NewError(code string) *Error {
	return &Error{Code: code}
}

// Local is an in-process identity provider: sign-ins are driven
// programmatically and fanned out to subscribers. It backs tests and
// deployments where the real provider sits in front of the HTTP surface.
type Local struct {
	mu      sync.Mutex
	current *Identity
	subs    map[int]func(*Identity)
	nextID  int
}

// NewLocal creates a signed-out local provider.
func NewLocal() *Local {
	return &Local{subs: make(map[int]func(*Identity))}
}

// Subscribe registers a callback and immediately delivers the current state.
func (l *Local) Subscribe(callback func(*Identity)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = callback
	current := l.current
	l.mu.Unlock()

	callback(current)
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// SignIn publishes a signed-in identity to all subscribers.
func (l *Local) SignIn(identity Identity) {
	l.mu.Lock()
	l.current = &identity
	subs := l.snapshotSubs()
	l.mu.Unlock()

	for _, cb := range subs {
		cb(&identity)
	}
}

// SignOut publishes a signed-out state to all subscribers.
func (l *Local) SignOut() {
	l.mu.Lock()
	l.current = nil
	subs := l.snapshotSubs()
	l.mu.Unlock()

	for _, cb := range subs {
		cb(nil)
	}
}

func (l *Local) snapshotSubs() []func(*Identity) {
	out := make([]func(*Identity), 0, len(l.subs))
	for _, cb := range l.subs {
		out = append(out, cb)
	}
	return out
}
