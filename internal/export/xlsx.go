package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"hms-service/internal/domain/heritage"
	"hms-service/internal/repository"
	"hms-service/internal/rules"
	"hms-service/internal/service"
)

// Exporter writes the caller's visible resources to a spreadsheet. It
// goes through the visibility service's bounded id resolution, so an
// export can never leak past the caller's access rules.
type Exporter struct {
	visibility *service.VisibilityService
	resources  *repository.ResourceRepository
	log        zerolog.Logger
}

func NewExporter(visibility *service.VisibilityService, resources *repository.ResourceRepository, log zerolog.Logger) *Exporter {
	return &Exporter{visibility: visibility, resources: resources, log: log}
}

var headers = []string{"ID", "Type", "Name", "Management Area", "Management Agency", "FPAN Region", "County"}

// VisibleResources builds a workbook with one sheet per requested
// type.
func (e *Exporter) VisibleResources(ctx context.Context, role rules.Role, scope []heritage.ResourceType) ([]byte, error) {
	if len(scope) == 0 {
		scope = heritage.AllResourceTypes
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, rt := range scope {
		sheet := sheetName(rt)
		if i == 0 {
			f.SetSheetName(f.GetSheetName(0), sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}
		if err := e.writeSheet(ctx, f, sheet, role, rt); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) writeSheet(ctx context.Context, f *excelize.File, sheet string, role rules.Role, rt heritage.ResourceType) error {
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	ids, all, err := e.visibility.ResolveIDs(ctx, role, rt)
	if err != nil {
		return fmt.Errorf("resolve visible %s: %w", rt, err)
	}
	if !all && len(ids) == 0 {
		return nil
	}

	var resources []heritage.Resource
	if all {
		resources, err = e.resources.ListByType(ctx, rt)
	} else {
		resources, err = e.resources.GetResources(ctx, ids)
	}
	if err != nil {
		return fmt.Errorf("load %s resources: %w", rt, err)
	}

	for row, res := range resources {
		values := []string{
			res.ID.String(),
			string(res.Type),
			res.Name,
			strings.Join(res.Values(heritage.AttrManagementArea), "; "),
			strings.Join(res.Values(heritage.AttrManagementAgency), "; "),
			strings.Join(res.Values(heritage.AttrFPANRegion), "; "),
			strings.Join(res.Values(heritage.AttrCounty), "; "),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func sheetName(rt heritage.ResourceType) string {
	// Sheet names are capped at 31 chars by the format.
	name := string(rt)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
