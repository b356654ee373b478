package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TargetAllocationRequest fila destino de una conversión.
type TargetAllocationRequest struct {
	TargetVariantID string          `json:"target_variant_id"`
	TargetQuantity  decimal.Decimal `json:"target_quantity"`
}

// ConversionRequest body para POST /api/depots/:depotId/conversions (y /validate).
// El depósito viene en la ruta.
type ConversionRequest struct {
	SourceVariantID string                    `json:"source_variant_id"`
	SourceQuantity  decimal.Decimal           `json:"source_quantity"`
	Targets         []TargetAllocationRequest `json:"targets"`
	Notes           string                    `json:"notes,omitempty"`
}

// ValidationIssueDTO error o advertencia atribuible a un campo/fila. Row = -1 para la solicitud.
type ValidationIssueDTO struct {
	Code      string           `json:"code"`
	Field     string           `json:"field"`
	Row       int              `json:"row"`
	Message   string           `json:"message"`
	Requested *decimal.Decimal `json:"requested,omitempty"`
	Available *decimal.Decimal `json:"available,omitempty"`
}

// ValidationResponse resultado de la validación en vivo.
type ValidationResponse struct {
	Valid    bool                 `json:"valid"`
	Errors   []ValidationIssueDTO `json:"errors"`
	Warnings []ValidationIssueDTO `json:"warnings"`
}

// ConversionRecordResponse una entrada del historial.
type ConversionRecordResponse struct {
	ID                     string          `json:"id"`
	BatchID                string          `json:"batch_id"`
	DepotID                string          `json:"depot_id"`
	SourceVariantID        string          `json:"source_variant_id"`
	SourceVariantName      string          `json:"source_variant_name"`
	SourceQuantityConsumed decimal.Decimal `json:"source_quantity_consumed"`
	TargetVariantID        string          `json:"target_variant_id"`
	TargetVariantName      string          `json:"target_variant_name"`
	TargetQuantityProduced decimal.Decimal `json:"target_quantity_produced"`
	PerformedBy            string          `json:"performed_by"`
	PerformedAt            time.Time       `json:"performed_at"`
	Notes                  string          `json:"notes,omitempty"`
}

// ExecuteConversionResponse resultado de una conversión ejecutada.
type ExecuteConversionResponse struct {
	Success  bool                       `json:"success"`
	BatchID  string                     `json:"batch_id"`
	Records  []ConversionRecordResponse `json:"records"`
	Warnings []ValidationIssueDTO       `json:"warnings,omitempty"`
}

// ConversionHistoryResponse página del historial.
type ConversionHistoryResponse struct {
	Items []ConversionRecordResponse `json:"items"`
	Page  PageResponse               `json:"page"`
}

// ConversionBatchResponse registros de un mismo lote.
type ConversionBatchResponse struct {
	BatchID string                     `json:"batch_id"`
	DepotID string                     `json:"depot_id"`
	Records []ConversionRecordResponse `json:"records"`
}

// ConversionSuggestionDTO sugerencia de destino y ratio para autocompletar.
type ConversionSuggestionDTO struct {
	TargetVariantID   string          `json:"target_variant_id"`
	TargetVariantName string          `json:"target_variant_name"`
	SuggestedRatio    decimal.Decimal `json:"suggested_ratio"`
	Description       string          `json:"description"`
	SampleCount       int             `json:"sample_count"`
}

// DepotVariantResponse variante con su stock actual en el depósito.
type DepotVariantResponse struct {
	DepotID    string          `json:"depot_id"`
	VariantID  string          `json:"variant_id"`
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	ClosingQty decimal.Decimal `json:"closing_qty"`
	Version    int64           `json:"version"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
