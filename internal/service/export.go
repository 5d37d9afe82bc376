package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/session"
)

// CSVFileName é o nome sugerido no download do CSV
const CSVFileName = "leads.csv"

// XLSXFileName é o nome sugerido no download da planilha
const XLSXFileName = "leads.xlsx"

// CSVExporter baixa o CSV pronto da API de leads
type CSVExporter interface {
	ExportCSV(ctx context.Context, adminKey string) ([]byte, error)
}

// ExportService cuida dos downloads (CSV da API e XLSX local)
type ExportService struct {
	leads    *LeadService
	exporter CSVExporter
	excel    *ExcelGenerator
}

// NewExportService cria o serviço de exportação
func NewExportService(leads *LeadService, exporter CSVExporter) *ExportService {
	return &ExportService{
		leads:    leads,
		exporter: exporter,
		excel:    NewExcelGenerator(),
	}
}

// CSV repassa o CSV da API. Em erro, LastError recebe a mensagem e o erro é retornado
func (s *ExportService) CSV(ctx context.Context, sess *session.Session) ([]byte, error) {
	sess.LastError = ""

	data, exportErr := s.exporter.ExportCSV(ctx, sess.AdminKey)
	if exportErr != nil {
		sess.LastError = model.CurrentError(exportErr)
		metrics.Get().IncrementExport(false, 0)
		logger.Get(ctx).Warn().Err(exportErr).Str("current_error", sess.LastError).Msg("Falha no download do CSV")
	} else {
		metrics.Get().IncrementExport(true, len(data))
	}

	if err := s.leads.save(ctx, sess); err != nil {
		return nil, err
	}
	if exportErr != nil {
		return nil, exportErr
	}
	return data, nil
}

// XLSX gera a planilha com todas as páginas do resultado filtrado e ordenado.
// Se a última busca falhou, devolve o erro dela em vez de uma planilha vazia
func (s *ExportService) XLSX(ctx context.Context, sess *session.Session) (*bytes.Buffer, error) {
	if err := s.leads.ensureLoaded(ctx, sess); err != nil {
		metrics.Get().IncrementExport(false, 0)
		return nil, err
	}
	if sess.FetchFailure != nil {
		metrics.Get().IncrementExport(false, 0)
		return nil, sess.FetchFailure.Err()
	}

	list := sess.ViewModel().Filtered()
	buf, err := s.excel.Generate(s.leads.Rows(list))
	if err != nil {
		metrics.Get().IncrementExport(false, 0)
		return nil, fmt.Errorf("gerar xlsx: %w", err)
	}

	metrics.Get().IncrementExport(true, buf.Len())
	logger.Get(ctx).Info().
		Int("leads", len(list)).
		Int("bytes", buf.Len()).
		Msg("Planilha de leads gerada")

	return buf, nil
}
