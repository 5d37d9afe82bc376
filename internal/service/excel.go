package service

import (
	"bytes"
	"fmt"

	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Leads"

// XLSXContentType é o MIME type da planilha exportada
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Colunas exportadas, na ordem da tabela do painel
var leadColumns = []string{"Name", "Country", "Contact", "Date", "WhatsApp"}

// ExcelGenerator gera a planilha de leads
type ExcelGenerator struct{}

// NewExcelGenerator cria um novo gerador de Excel
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Generate gera um arquivo Excel com uma linha por lead
func (g *ExcelGenerator) Generate(rows []model.LeadRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Renomeia a sheet padrão
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	if err := g.writeHeaders(f); err != nil {
		return nil, fmt.Errorf("escrever headers: %w", err)
	}

	if err := g.writeData(f, rows); err != nil {
		return nil, fmt.Errorf("escrever dados: %w", err)
	}

	if err := g.setColumnWidths(f); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	// Congela a linha de cabeçalho
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("congelar cabeçalho: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}

	return buf, nil
}

func (g *ExcelGenerator) writeHeaders(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"25D366"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: borders("000000"),
	})
	if err != nil {
		return err
	}

	for col, header := range leadColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}

	return nil
}

func (g *ExcelGenerator) writeData(f *excelize.File, rows []model.LeadRow) error {
	styleOdd, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Border: borders("D9D9D9"),
	})
	if err != nil {
		return err
	}
	styleEven, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFFFFF"}, Pattern: 1},
		Border: borders("D9D9D9"),
	})
	if err != nil {
		return err
	}
	styleLink, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "0563C1", Underline: "single"},
		Border: borders("D9D9D9"),
	})
	if err != nil {
		return err
	}

	for i, row := range rows {
		excelRow := i + 2 // Linha 1 é header

		style := styleEven
		if i%2 == 1 {
			style = styleOdd
		}

		values := []string{
			dash(row.Name),
			dash(row.Country),
			dash(row.Contact),
			row.Date,
			row.WhatsAppURL,
		}

		first, _ := excelize.CoordinatesToCellName(1, excelRow)
		last, _ := excelize.CoordinatesToCellName(len(values), excelRow)
		if err := f.SetSheetRow(sheetName, first, &values); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, first, last, style); err != nil {
			return err
		}

		if row.WhatsAppURL != "" {
			if err := f.SetCellHyperLink(sheetName, last, row.WhatsAppURL, "External"); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheetName, last, last, styleLink); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *ExcelGenerator) setColumnWidths(f *excelize.File) error {
	widths := []float64{28, 18, 22, 18, 36}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func borders(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "top", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
