package conversion

import (
	"context"

	"github.com/jhoicas/depot-stock-api/internal/application/dto"
	domconversion "github.com/jhoicas/depot-stock-api/internal/domain/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

// ValidateFromRequest adapta el body HTTP a Validate. El depósito viene de la ruta.
func (uc *ConversionUseCase) ValidateFromRequest(ctx context.Context, depotID string, in dto.ConversionRequest) (*dto.ValidationResponse, error) {
	res, err := uc.Validate(ctx, toEntityRequest(depotID, in))
	if err != nil {
		return nil, err
	}
	return ToValidationResponse(res), nil
}

// ExecuteFromRequest adapta el body HTTP a Execute.
func (uc *ConversionUseCase) ExecuteFromRequest(ctx context.Context, depotID, userID string, in dto.ConversionRequest) (*dto.ExecuteConversionResponse, error) {
	out, err := uc.Execute(ctx, toEntityRequest(depotID, in), userID)
	if err != nil {
		return nil, err
	}
	return &dto.ExecuteConversionResponse{
		Success:  true,
		BatchID:  out.BatchID,
		Records:  ToRecordResponses(out.Records),
		Warnings: ToIssueDTOs(out.Warnings),
	}, nil
}

func toEntityRequest(depotID string, in dto.ConversionRequest) entity.ConversionRequest {
	targets := make([]entity.TargetAllocation, 0, len(in.Targets))
	for _, t := range in.Targets {
		targets = append(targets, entity.TargetAllocation{
			TargetVariantID: t.TargetVariantID,
			TargetQuantity:  t.TargetQuantity,
		})
	}
	return entity.ConversionRequest{
		DepotID:         depotID,
		SourceVariantID: in.SourceVariantID,
		SourceQuantity:  in.SourceQuantity,
		Targets:         targets,
		Notes:           in.Notes,
	}
}

// ToValidationResponse convierte el resultado del validador. Las listas nunca son null en JSON.
func ToValidationResponse(res domconversion.Result) *dto.ValidationResponse {
	return &dto.ValidationResponse{
		Valid:    res.Valid(),
		Errors:   ToIssueDTOs(res.Errors),
		Warnings: ToIssueDTOs(res.Warnings),
	}
}

// ToIssueDTOs convierte issues de validación.
func ToIssueDTOs(issues []domconversion.Issue) []dto.ValidationIssueDTO {
	out := make([]dto.ValidationIssueDTO, 0, len(issues))
	for _, i := range issues {
		out = append(out, dto.ValidationIssueDTO{
			Code:      i.Code,
			Field:     i.Field,
			Row:       i.Row,
			Message:   i.Message,
			Requested: i.Requested,
			Available: i.Available,
		})
	}
	return out
}

// ToRecordResponses convierte registros del historial.
func ToRecordResponses(records []*entity.ConversionRecord) []dto.ConversionRecordResponse {
	out := make([]dto.ConversionRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.ConversionRecordResponse{
			ID:                     r.ID,
			BatchID:                r.BatchID,
			DepotID:                r.DepotID,
			SourceVariantID:        r.SourceVariantID,
			SourceVariantName:      r.SourceVariantName,
			SourceQuantityConsumed: r.SourceQuantityConsumed,
			TargetVariantID:        r.TargetVariantID,
			TargetVariantName:      r.TargetVariantName,
			TargetQuantityProduced: r.TargetQuantityProduced,
			PerformedBy:            r.PerformedBy,
			PerformedAt:            r.PerformedAt,
			Notes:                  r.Notes,
		})
	}
	return out
}

// ToSuggestionDTOs convierte sugerencias.
func ToSuggestionDTOs(suggestions []entity.ConversionSuggestion) []dto.ConversionSuggestionDTO {
	out := make([]dto.ConversionSuggestionDTO, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, dto.ConversionSuggestionDTO{
			TargetVariantID:   s.TargetVariantID,
			TargetVariantName: s.TargetVariantName,
			SuggestedRatio:    s.SuggestedRatio,
			Description:       s.Description,
			SampleCount:       s.SampleCount,
		})
	}
	return out
}

// ToVariantResponses convierte variantes del depósito.
func ToVariantResponses(variants []*entity.DepotVariant) []dto.DepotVariantResponse {
	out := make([]dto.DepotVariantResponse, 0, len(variants))
	for _, v := range variants {
		out = append(out, dto.DepotVariantResponse{
			DepotID:    v.DepotID,
			VariantID:  v.VariantID,
			ProductID:  v.ProductID,
			Name:       v.Name,
			ClosingQty: v.ClosingQty,
			Version:    v.Version,
			UpdatedAt:  v.UpdatedAt,
		})
	}
	return out
}
