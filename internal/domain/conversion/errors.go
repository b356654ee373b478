package conversion

import (
	"fmt"

	"github.com/jhoicas/depot-stock-api/internal/domain"
)

// ValidationFailedError la ejecución se rechazó por errores de validación.
// errors.Is(err, domain.ErrValidationFailed) es verdadero.
type ValidationFailedError struct {
	Result Result
}

func (e *ValidationFailedError) Error() string {
	if len(e.Result.Errors) == 1 {
		return fmt.Sprintf("%s: %s", domain.ErrValidationFailed, e.Result.Errors[0].Message)
	}
	return fmt.Sprintf("%s: %d errores", domain.ErrValidationFailed, len(e.Result.Errors))
}

func (e *ValidationFailedError) Unwrap() error { return domain.ErrValidationFailed }
