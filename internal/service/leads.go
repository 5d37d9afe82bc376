package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/metrics"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/phone"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/cleberrangel/leads-admin-api/internal/viewmodel"
	"golang.org/x/crypto/bcrypt"
)

// DateLayout é o formato de exibição da data de criação
const DateLayout = "2006-01-02 15:04"

// LeadFetcher busca o snapshot completo de leads na API
type LeadFetcher interface {
	ListLeads(ctx context.Context, adminKey string) ([]model.Lead, error)
}

// LeadService orquestra login, refresh e consulta da lista de leads
type LeadService struct {
	store   session.Store
	fetcher LeadFetcher
	keyHash []byte
	region  string
}

// NewLeadService cria o serviço. adminKeyHash vazio desativa a verificação local da chave
func NewLeadService(store session.Store, fetcher LeadFetcher, adminKeyHash, region string) *LeadService {
	s := &LeadService{
		store:   store,
		fetcher: fetcher,
		region:  region,
	}
	if adminKeyHash != "" {
		s.keyHash = []byte(adminKeyHash)
	}
	return s
}

// Login abre uma sessão com a chave de admin e faz a primeira busca.
// Falha na busca não invalida o login: o erro fica em LastError
func (s *LeadService) Login(ctx context.Context, key string) (*session.Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, model.ErrEmptyKey
	}

	if s.keyHash != nil {
		if err := bcrypt.CompareHashAndPassword(s.keyHash, []byte(key)); err != nil {
			metrics.Get().IncrementLogin(false)
			return nil, model.ErrKeyRejected
		}
	}

	sess, err := s.store.Create(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("criar sessão: %w", err)
	}
	metrics.Get().IncrementLogin(true)

	ctx = logger.WithSessionID(ctx, sess.ID)
	if err := s.Refresh(ctx, sess); err != nil && !isFetchError(err) {
		return nil, err
	}

	return sess, nil
}

// Refresh busca novamente o snapshot. Em qualquer erro o snapshot é descartado
// e LastError recebe a mensagem correspondente. Retorna o erro da busca
func (s *LeadService) Refresh(ctx context.Context, sess *session.Session) error {
	log := logger.Get(ctx)
	start := time.Now()

	sess.LastError = ""
	sess.FetchFailure = nil
	vm := sess.ViewModel()

	leads, fetchErr := s.fetcher.ListLeads(ctx, sess.AdminKey)
	if fetchErr != nil {
		vm.Reset()
		sess.LastError = model.CurrentError(fetchErr)
		sess.FetchFailure = &session.FetchFailure{Status: upstreamStatus(fetchErr), Message: sess.LastError}
		metrics.Get().IncrementLeadFetch(false, 0)
		log.Warn().Err(fetchErr).Str("current_error", sess.LastError).Msg("Falha ao buscar leads")
	} else {
		vm.SetRawLeads(leads)
		metrics.Get().IncrementLeadFetch(true, len(leads))
		log.Info().
			Int("leads", len(leads)).
			Dur("duration", time.Since(start)).
			Msg("Leads atualizados")
	}

	sess.StoreView(vm)
	if err := s.save(ctx, sess); err != nil {
		return err
	}

	if fetchErr != nil {
		return &FetchError{Err: fetchErr}
	}
	return nil
}

// Query aplica os filtros (busca, ordenação, página, nessa ordem) e devolve a página atual
func (s *LeadService) Query(ctx context.Context, sess *session.Session, q model.LeadQuery) (*model.LeadsView, error) {
	if err := s.ensureLoaded(ctx, sess); err != nil && !isFetchError(err) {
		return nil, err
	}

	vm := sess.ViewModel()
	changed := false

	if q.Search != nil {
		vm.SetSearchQuery(*q.Search)
		changed = true
	}
	if q.Sort != nil {
		vm.SetSortDirection(viewmodel.ParseSortDirection(*q.Sort))
		changed = true
	}
	if q.Page != nil {
		vm.SetPage(*q.Page)
		changed = true
	}

	if changed {
		sess.StoreView(vm)
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
	}

	return s.View(sess), nil
}

// View monta a projeção de exibição da página atual, sem alterar a sessão
func (s *LeadService) View(sess *session.Session) *model.LeadsView {
	vm := sess.ViewModel()
	res := vm.Derive()

	return &model.LeadsView{
		Items:       s.Rows(res.PageItems),
		TotalCount:  res.TotalCount,
		TotalPages:  res.TotalPages,
		CurrentPage: res.CurrentPage,
		PageSize:    vm.PageSize(),
		Search:      vm.SearchQuery(),
		Sort:        string(vm.SortDirection()),
		Error:       sess.LastError,
	}
}

// Rows converte leads em linhas de exibição (data formatada, telefone, link do WhatsApp)
func (s *LeadService) Rows(leads []model.Lead) []model.LeadRow {
	rows := make([]model.LeadRow, len(leads))
	for i, lead := range leads {
		rows[i] = model.LeadRow{
			Lead:         lead,
			Date:         FormatDate(lead.CreatedAt),
			Phone:        phone.DigitsOnly(lead.Contact),
			PhoneDisplay: phone.Display(lead.Contact, s.region),
			WhatsAppURL:  phone.WhatsAppLink(lead.Contact),
		}
	}
	return rows
}

// Logout remove a sessão (chave, snapshot e erro)
func (s *LeadService) Logout(ctx context.Context, sess *session.Session) error {
	if sess.Ephemeral() {
		return nil
	}
	if err := s.store.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("remover sessão: %w", err)
	}
	return nil
}

// ensureLoaded faz a busca inicial para sessões de uso único
func (s *LeadService) ensureLoaded(ctx context.Context, sess *session.Session) error {
	if !sess.Ephemeral() || sess.ViewModel().Len() > 0 || sess.FetchFailure != nil {
		return nil
	}
	return s.Refresh(ctx, sess)
}

func (s *LeadService) save(ctx context.Context, sess *session.Session) error {
	if sess.Ephemeral() {
		return nil
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("salvar sessão: %w", err)
	}
	return nil
}

// FormatDate formata createdAt para exibição; ausente ou inválido vira "-"
func FormatDate(createdAt string) string {
	if createdAt == "" {
		return "-"
	}
	t := model.ParseTimestamp(createdAt)
	if t.Unix() == 0 {
		return "-"
	}
	return t.Format(DateLayout)
}

// FetchError marca erros vindos da API de leads (já refletidos em LastError)
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

func upstreamStatus(err error) int {
	var upstream *model.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status
	}
	return 0
}

func isFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
