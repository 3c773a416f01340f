package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OptionalString devuelve nil para cadenas vacías (columnas NULL en la salida JSON).
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
