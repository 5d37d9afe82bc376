// Package viewmodel deriva a visão paginada, filtrada e ordenada dos leads
// a partir do snapshot obtido da API. Não há I/O nem sincronização aqui:
// cada instância pertence a um único dono (a sessão que a carregou).
package viewmodel

import (
	"sort"
	"strings"

	"github.com/cleberrangel/leads-admin-api/internal/model"
)

// DefaultPageSize é o tamanho fixo da página do painel
const DefaultPageSize = 10

// SortDirection define a ordenação por data de criação
type SortDirection string

const (
	Newest SortDirection = "newest"
	Oldest SortDirection = "oldest"
)

// ParseSortDirection converte texto livre; qualquer valor diferente de "oldest" vira Newest
func ParseSortDirection(s string) SortDirection {
	d, _ := LookupSortDirection(s)
	return d
}

// LookupSortDirection aceita "newest" ou "oldest" sem diferenciar maiúsculas e espaços.
// ok é false para qualquer outro valor (e a direção volta como Newest)
func LookupSortDirection(s string) (d SortDirection, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Newest):
		return Newest, true
	case string(Oldest):
		return Oldest, true
	default:
		return Newest, false
	}
}

// State é o estado serializável do view-model (guardado na sessão)
type State struct {
	RawLeads      []model.Lead  `json:"raw_leads"`
	SearchQuery   string        `json:"search_query"`
	SortDirection SortDirection `json:"sort_direction"`
	Page          int           `json:"page"`
}

// Result é a projeção consumida pela camada de exibição
type Result struct {
	PageItems   []model.Lead
	TotalPages  int
	CurrentPage int
	TotalCount  int
}

// LeadList guarda o snapshot de leads e os parâmetros de visualização
type LeadList struct {
	rawLeads      []model.Lead
	searchQuery   string
	sortDirection SortDirection
	page          int
	pageSize      int
}

// New cria um view-model vazio: ordenação Newest, página 1
func New() *LeadList {
	return &LeadList{
		sortDirection: Newest,
		page:          1,
		pageSize:      DefaultPageSize,
	}
}

// FromState reconstrói um view-model a partir do estado salvo
func FromState(st State) *LeadList {
	v := New()
	v.rawLeads = st.RawLeads
	v.searchQuery = st.SearchQuery
	if st.SortDirection == Oldest {
		v.sortDirection = Oldest
	}
	if st.Page > 1 {
		v.page = st.Page
	}
	return v
}

// State devolve o estado atual para persistência
func (v *LeadList) State() State {
	return State{
		RawLeads:      v.rawLeads,
		SearchQuery:   v.searchQuery,
		SortDirection: v.sortDirection,
		Page:          v.page,
	}
}

// SetRawLeads substitui o snapshot inteiro e volta para a página 1
// Busca e ordenação são preservadas
func (v *LeadList) SetRawLeads(leads []model.Lead) {
	v.rawLeads = leads
	v.page = 1
}

// Reset descarta o snapshot (logout ou falha na busca)
func (v *LeadList) Reset() {
	v.SetRawLeads(nil)
}

// SetSearchQuery define o filtro e volta para a página 1
func (v *LeadList) SetSearchQuery(q string) {
	v.searchQuery = q
	v.page = 1
}

// SetSortDirection define a ordenação e volta para a página 1
func (v *LeadList) SetSortDirection(d SortDirection) {
	if d != Oldest {
		d = Newest
	}
	v.sortDirection = d
	v.page = 1
}

// ToggleSort alterna entre Newest e Oldest
func (v *LeadList) ToggleSort() {
	if v.sortDirection == Newest {
		v.SetSortDirection(Oldest)
		return
	}
	v.SetSortDirection(Newest)
}

// SetPage grava p limitado a [1, totalPages]
func (v *LeadList) SetPage(p int) {
	v.page = clamp(p, 1, v.totalPages(len(v.filtered())))
}

// SearchQuery retorna o filtro atual
func (v *LeadList) SearchQuery() string { return v.searchQuery }

// SortDirection retorna a ordenação atual
func (v *LeadList) SortDirection() SortDirection { return v.sortDirection }

// PageSize retorna o tamanho da página
func (v *LeadList) PageSize() int { return v.pageSize }

// Len retorna o total de leads no snapshot (sem filtro)
func (v *LeadList) Len() int { return len(v.rawLeads) }

// Derive calcula a página atual. É uma função pura do estado
func (v *LeadList) Derive() Result {
	list := v.filtered()

	totalPages := v.totalPages(len(list))
	currentPage := v.page
	if currentPage > totalPages {
		currentPage = totalPages
	}
	if currentPage < 1 {
		currentPage = 1
	}

	start := (currentPage - 1) * v.pageSize
	end := start + v.pageSize
	if start > len(list) {
		start = len(list)
	}
	if end > len(list) {
		end = len(list)
	}

	return Result{
		PageItems:   list[start:end],
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		TotalCount:  len(list),
	}
}

// Filtered retorna a lista completa ordenada e filtrada (todas as páginas)
func (v *LeadList) Filtered() []model.Lead {
	return v.filtered()
}

// filtered copia, ordena e filtra o snapshot
func (v *LeadList) filtered() []model.Lead {
	list := make([]model.Lead, len(v.rawLeads))
	copy(list, v.rawLeads)

	newest := v.sortDirection != Oldest
	sort.SliceStable(list, func(i, j int) bool {
		ti := list[i].CreatedTime()
		tj := list[j].CreatedTime()
		if newest {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})

	if strings.TrimSpace(v.searchQuery) == "" {
		return list
	}

	q := strings.ToLower(v.searchQuery)
	out := list[:0]
	for _, lead := range list {
		if Matches(lead, q) {
			out = append(out, lead)
		}
	}
	return out
}

// Matches indica se algum dos campos pesquisáveis contém q (já em minúsculas)
func Matches(lead model.Lead, q string) bool {
	return strings.Contains(strings.ToLower(lead.Name), q) ||
		strings.Contains(strings.ToLower(lead.Country), q) ||
		strings.Contains(strings.ToLower(lead.Contact), q)
}

func (v *LeadList) totalPages(count int) int {
	pages := (count + v.pageSize - 1) / v.pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

func clamp(p, lo, hi int) int {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
