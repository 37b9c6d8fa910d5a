package dto

// ErrorResponse cuerpo de error HTTP (no encontrado, cuerpo inválido, error interno).
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse errores de validación por campo, ej. {"invoice_number": ["..."]}.
type ValidationErrorResponse map[string][]string

// MessageResponse respuesta simple de confirmación.
type MessageResponse struct {
	Message string `json:"message"`
}
