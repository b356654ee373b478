package dto

// PageRequest paginación para listados (page comienza en 1).
type PageRequest struct {
	Page  int `query:"page" validate:"min=1"`
	Limit int `query:"limit" validate:"min=1,max=100"`
}

// DefaultPage aplica valores por defecto y recorta Limit a maxLimit.
func (p *PageRequest) DefaultPage(maxLimit int) {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ErrorResponse cuerpo de error HTTP. Errors/Warnings solo aparecen en fallos de validación.
type ErrorResponse struct {
	Code     string               `json:"code"`
	Message  string               `json:"message"`
	Errors   []ValidationIssueDTO `json:"errors,omitempty"`
	Warnings []ValidationIssueDTO `json:"warnings,omitempty"`
}
