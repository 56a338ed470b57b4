package app

type CacheValidator interface {
	Validate()
}

type HandlerValidateCache struct {
	validator CacheValidator
}

func NewHandlerValidateCache(validator CacheValidator) *HandlerValidateCache {
	return &HandlerValidateCache{validator: validator}
}

// Handle starts a validation; cleanup happens asynchronously and never fails.
func (h *HandlerValidateCache) Handle() {
	h.validator.Validate()
}
