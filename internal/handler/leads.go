package handler

import (
	"fmt"
	"net/http"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/middleware"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/service"
	"github.com/cleberrangel/leads-admin-api/internal/viewmodel"
	"github.com/gin-gonic/gin"
)

// LeadsHandler serve a lista paginada e os downloads
type LeadsHandler struct {
	leads  *service.LeadService
	export *service.ExportService
}

// NewLeadsHandler cria o handler de leads
func NewLeadsHandler(leads *service.LeadService, export *service.ExportService) *LeadsHandler {
	return &LeadsHandler{
		leads:  leads,
		export: export,
	}
}

// List aplica busca/ordenação/página e devolve a página atual
// @Summary      Lista leads
// @Tags         leads
// @Produce      json
// @Param        search query string false "Filtro por nome, país ou contato"
// @Param        sort   query string false "newest ou oldest"
// @Param        page   query int    false "Página (1..totalPages)"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      401 {object} model.ErrorResponse
// @Router       /api/leads [get]
func (h *LeadsHandler) List(c *gin.Context) {
	var q model.LeadQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	if q.Search != nil {
		search := middleware.SanitizeSearch(*q.Search)
		q.Search = &search
	}
	if q.Sort != nil {
		dir, ok := viewmodel.LookupSortDirection(*q.Sort)
		if !ok {
			badRequest(c, fmt.Errorf("sort deve ser newest ou oldest, recebido %q", *q.Sort))
			return
		}
		sort := string(dir)
		q.Sort = &sort
	}

	sess := middleware.CurrentSession(c)
	view, err := h.leads.Query(c.Request.Context(), sess, q)
	if err != nil {
		respondError(c, err)
		return
	}

	// Sessão de uso único (header x-admin-key): a busca acabou de falhar,
	// então o status segue o erro da API como no refresh
	status := http.StatusOK
	if sess.Ephemeral() && sess.FetchFailure != nil {
		status = statusFor(sess.FetchFailure.Err())
	}

	resp := model.Response{Success: view.Error == "", Data: view}
	if view.Error != "" {
		resp.Errors = []string{view.Error}
	}
	c.JSON(status, resp)
}

// Refresh busca o snapshot de novo na API. Em erro o snapshot é descartado
// e a resposta traz a view vazia com a mensagem de erro
// @Summary      Atualiza leads
// @Tags         leads
// @Produce      json
// @Success      200 {object} model.Response
// @Failure      401 {object} model.Response
// @Failure      502 {object} model.Response
// @Router       /api/leads/refresh [post]
func (h *LeadsHandler) Refresh(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ctx := c.Request.Context()

	err := h.leads.Refresh(ctx, sess)
	logger.AuditResult(ctx, logger.AuditActionLeadsRefresh, "leads", c.ClientIP(), err)

	view := h.leads.View(sess)
	if err != nil {
		if view.Error == "" {
			// falha ao salvar a sessão, não na busca
			respondError(c, err)
			return
		}
		c.JSON(statusFor(err), model.Response{
			Success: false,
			Data:    view,
			Errors:  []string{view.Error},
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: view})
}

// ExportCSV repassa o CSV gerado pela API
// @Summary      Exporta CSV
// @Tags         leads
// @Produce      text/csv
// @Success      200 {file} binary "leads.csv"
// @Failure      401 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /api/leads/export [get]
func (h *LeadsHandler) ExportCSV(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ctx := c.Request.Context()

	data, err := h.export.CSV(ctx, sess)
	logger.AuditResult(ctx, logger.AuditActionLeadsExport, "leads.csv", c.ClientIP(), err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.CSVFileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ExportXLSX gera a planilha com o resultado filtrado (todas as páginas)
// @Summary      Exporta XLSX
// @Tags         leads
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200 {file} binary "leads.xlsx"
// @Router       /api/leads/export.xlsx [get]
func (h *LeadsHandler) ExportXLSX(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	ctx := c.Request.Context()

	buf, err := h.export.XLSX(ctx, sess)
	logger.AuditResult(ctx, logger.AuditActionLeadsExport, service.XLSXFileName, c.ClientIP(), err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.XLSXFileName))
	c.Header("Content-Length", fmt.Sprintf("%d", buf.Len()))
	c.Data(http.StatusOK, service.XLSXContentType, buf.Bytes())
}
