package api

// RequestClass is the caller-declared category of a dispatch. It selects both
// the provider/model defaults and the quota dimension charged.
type RequestClass string

const (
	ClassQuick RequestClass = "quick"
	ClassDeep  RequestClass = "deep"
)

// Valid reports whether the class is one of the known enum values.
// Classification is caller-supplied and validated, never inferred.
func (c RequestClass) Valid() bool {
	return c == ClassQuick || c == ClassDeep
}

// ModelSelection is a user's chosen provider/model pair. It is resolved
// against the provider registry at dispatch time and must reference an
// enabled provider or dispatch fails closed.
type ModelSelection struct {
	Provider string `json:"provider" binding:"required"`
	Model    string `json:"model" binding:"required"`
}

// OptimizeRequest is the inbound dispatch payload for both the optimize and
// evaluate routes. Selection is optional; the class default applies when nil.
type OptimizeRequest struct {
	RequestClass RequestClass    `json:"request_class" binding:"required,oneof=quick deep"`
	Selection    *ModelSelection `json:"selection,omitempty"`
	Prompt       string          `json:"prompt" binding:"required,min=1,max=32768"`
}
