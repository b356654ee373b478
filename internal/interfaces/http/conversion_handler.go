package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	appconversion "github.com/jhoicas/depot-stock-api/internal/application/conversion"
	"github.com/jhoicas/depot-stock-api/internal/application/dto"
	"github.com/jhoicas/depot-stock-api/internal/domain"
	domconversion "github.com/jhoicas/depot-stock-api/internal/domain/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain/repository"
)

// ConversionHandler maneja las peticiones HTTP del motor de conversión de stock (protegido).
type ConversionHandler struct {
	uc              *appconversion.ConversionUseCase
	historyMaxLimit int
}

// NewConversionHandler construye el handler.
func NewConversionHandler(uc *appconversion.ConversionUseCase, historyMaxLimit int) *ConversionHandler {
	return &ConversionHandler{uc: uc, historyMaxLimit: historyMaxLimit}
}

// ListVariants godoc
// @Summary      Variantes del depósito con stock actual
// @Tags         conversions
// @Security     Bearer
// @Produce      json
// @Param        depotId     path   string  true   "ID del depósito"
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Success      200  {array}   dto.DepotVariantResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/depots/{depotId}/variants [get]
func (h *ConversionHandler) ListVariants(c *fiber.Ctx) error {
	variants, err := h.uc.ListVariants(c.UserContext(), c.Params("depotId"), c.Query("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(appconversion.ToVariantResponses(variants))
}

// Validate godoc
// @Summary      Validar conversión (sin efectos)
// @Description  Revisa la solicitud contra el stock vigente. Devuelve errores y advertencias por campo/fila;
//
//	pensado para invocarse en cada cambio del formulario.
//
// @Tags         conversions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        depotId  path  string                 true  "ID del depósito"
// @Param        body     body  dto.ConversionRequest  true  "source_variant_id, source_quantity, targets[]"
// @Success      200  {object}  dto.ValidationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/depots/{depotId}/conversions/validate [post]
func (h *ConversionHandler) Validate(c *fiber.Ctx) error {
	var in dto.ConversionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.ValidateFromRequest(c.UserContext(), c.Params("depotId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Execute godoc
// @Summary      Ejecutar conversión
// @Description  Consume stock de la variante origen y acredita las variantes destino en una sola
//
//	transacción. Un registro de historial por fila destino, todos con el mismo batch_id.
//
// @Tags         conversions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        depotId  path  string                 true  "ID del depósito"
// @Param        body     body  dto.ConversionRequest  true  "source_variant_id, source_quantity, targets[], notes"
// @Success      201  {object}  dto.ExecuteConversionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse  "el stock cambió, reintente"
// @Failure      422  {object}  dto.ErrorResponse  "errores de validación"
// @Router       /api/depots/{depotId}/conversions [post]
func (h *ConversionHandler) Execute(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ConversionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.ExecuteFromRequest(c.UserContext(), c.Params("depotId"), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// History godoc
// @Summary      Historial de conversiones del depósito
// @Tags         conversions
// @Security     Bearer
// @Produce      json
// @Param        depotId     path   string  true   "ID del depósito"
// @Param        variant_id  query  string  false  "Variante origen o destino"
// @Param        from        query  string  false  "Desde (RFC3339 o YYYY-MM-DD)"
// @Param        to          query  string  false  "Hasta (RFC3339 o YYYY-MM-DD, inclusive)"
// @Param        page        query  int     false  "Página (desde 1)"
// @Param        limit       query  int     false  "Tamaño de página"
// @Success      200  {object}  dto.ConversionHistoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/depots/{depotId}/conversions [get]
func (h *ConversionHandler) History(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage(h.historyMaxLimit)

	from, err := parseDateParam(c.Query("from"), false)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido"})
	}
	to, err := parseDateParam(c.Query("to"), true)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido"})
	}

	records, total, err := h.uc.QueryHistory(c.UserContext(), repository.HistoryFilter{
		DepotID:   c.Params("depotId"),
		VariantID: c.Query("variant_id"),
		From:      from,
		To:        to,
		Page:      page.Page,
		Limit:     page.Limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ConversionHistoryResponse{
		Items: appconversion.ToRecordResponses(records),
		Page:  dto.PageResponse{Page: page.Page, Limit: page.Limit, Total: total},
	})
}

// GetBatch godoc
// @Summary      Registros de un lote de conversión
// @Tags         conversions
// @Security     Bearer
// @Produce      json
// @Param        depotId  path  string  true  "ID del depósito"
// @Param        batchId  path  string  true  "ID del lote"
// @Success      200  {object}  dto.ConversionBatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/depots/{depotId}/conversions/batches/{batchId} [get]
func (h *ConversionHandler) GetBatch(c *fiber.Ctx) error {
	depotID, batchID := c.Params("depotId"), c.Params("batchId")
	records, err := h.uc.GetBatch(c.UserContext(), depotID, batchID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ConversionBatchResponse{
		BatchID: batchID,
		DepotID: depotID,
		Records: appconversion.ToRecordResponses(records),
	})
}

// BatchVoucher godoc
// @Summary      Comprobante PDF de un lote
// @Tags         conversions
// @Security     Bearer
// @Produce      application/pdf
// @Param        depotId  path  string  true  "ID del depósito"
// @Param        batchId  path  string  true  "ID del lote"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/depots/{depotId}/conversions/batches/{batchId}/pdf [get]
func (h *ConversionHandler) BatchVoucher(c *fiber.Ctx) error {
	batchID := c.Params("batchId")
	pdf, err := h.uc.BatchVoucher(c.UserContext(), c.Params("depotId"), batchID)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="conversion-`+batchID+`.pdf"`)
	return c.Send(pdf)
}

// Suggestions godoc
// @Summary      Sugerencias de destino y ratio
// @Description  Ratios históricos (Σ producido / Σ consumido) por variante destino. Sin historial: lista vacía.
// @Tags         conversions
// @Security     Bearer
// @Produce      json
// @Param        source_variant_id  query  string  true  "Variante origen"
// @Success      200  {array}   dto.ConversionSuggestionDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/conversions/suggestions [get]
func (h *ConversionHandler) Suggestions(c *fiber.Ctx) error {
	out, err := h.uc.Suggest(c.UserContext(), c.Query("source_variant_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(appconversion.ToSuggestionDTOs(out))
}

// writeError traduce errores de dominio a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var vErr *domconversion.ValidationFailedError
	switch {
	case errors.As(err, &vErr):
		res := appconversion.ToValidationResponse(vErr.Result)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code: "VALIDATION_FAILED", Message: "la conversión no pasó la validación",
			Errors: res.Errors, Warnings: res.Warnings,
		})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: domain.ErrConflict.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}

// parseDateParam acepta RFC3339 o YYYY-MM-DD. Con endOfDay, una fecha sin hora cubre el día completo.
func parseDateParam(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
