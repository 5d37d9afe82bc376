package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/xuri/excelize/v2"
)

func TestExportCSV(t *testing.T) {
	up := &fakeUpstream{leads: sampleLeads(), csv: []byte("name,contact\nAmal,+91\n")}
	leads, store := newLeadService(up)
	defer store.Close()
	svc := NewExportService(leads, up)
	ctx := context.Background()

	sess, err := leads.Login(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	sess.LastError = "stale"

	data, err := svc.CSV(ctx, sess)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if !bytes.Equal(data, up.csv) {
		t.Errorf("expected upstream bytes, got %q", data)
	}
	if sess.LastError != "" {
		t.Errorf("expected error cleared, got %q", sess.LastError)
	}
}

func TestExportCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"upstream", &model.UpstreamError{Status: 401, Message: "Invalid admin key"}, "Invalid admin key"},
		{"upstream without message", &model.UpstreamError{Status: 500}, model.MsgUnauthorized},
		{"transport", fmt.Errorf("dial: %w", model.ErrExportFailed), model.MsgExportFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{leads: sampleLeads(), csvErr: tt.err}
			leads, store := newLeadService(up)
			defer store.Close()
			svc := NewExportService(leads, up)
			ctx := context.Background()

			sess, err := leads.Login(ctx, "k")
			if err != nil {
				t.Fatal(err)
			}

			if _, err := svc.CSV(ctx, sess); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if sess.LastError != tt.want {
				t.Errorf("expected %q, got %q", tt.want, sess.LastError)
			}

			// snapshot não é afetado por falha no CSV
			stored, _ := store.Get(ctx, sess.ID)
			if stored.LastError != tt.want || len(stored.View.RawLeads) != 3 {
				t.Errorf("unexpected stored session %+v", stored)
			}
		})
	}
}

func TestExportXLSXAllFilteredPages(t *testing.T) {
	up := &fakeUpstream{leads: manyLeads(25)}
	leads, store := newLeadService(up)
	defer store.Close()
	svc := NewExportService(leads, up)
	ctx := context.Background()

	sess, err := leads.Login(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := leads.Query(ctx, sess, model.LeadQuery{Search: strPtr("lead 1"), Sort: strPtr("oldest")}); err != nil {
		t.Fatal(err)
	}

	buf, err := svc.XLSX(ctx, sess)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 11 {
		t.Fatalf("expected header + 10 rows, got %d", len(rows))
	}
	if fmt.Sprint(rows[0]) != "[Name Country Contact Date WhatsApp]" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "Lead 10" || rows[1][1] != "-" {
		t.Errorf("unexpected first row %v", rows[1])
	}
	if rows[1][4] != "https://wa.me/919000000010" {
		t.Errorf("unexpected whatsapp cell %q", rows[1][4])
	}

	ok, link, err := f.GetCellHyperLink(sheetName, "E2")
	if err != nil || !ok || link != rows[1][4] {
		t.Errorf("expected hyperlink on E2, got %v %q %v", ok, link, err)
	}
}

func TestExportXLSXEphemeralFetchError(t *testing.T) {
	up := &fakeUpstream{err: &model.UpstreamError{Status: 401, Message: "nope"}}
	leads, store := newLeadService(up)
	defer store.Close()
	svc := NewExportService(leads, up)

	_, err := svc.XLSX(context.Background(), session.NewEphemeral("k"))
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestExcelGeneratorEmpty(t *testing.T) {
	buf, err := NewExcelGenerator().Generate(nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, _ := f.GetRows(sheetName)
	if len(rows) != 1 {
		t.Errorf("expected only the header row, got %d", len(rows))
	}
}

func TestExportXLSXAfterFailedFetch(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantErr    error
		wantStatus int
	}{
		{"rejected key", &model.UpstreamError{Status: 401, Message: "Invalid admin key"}, model.ErrUnauthorized, 401},
		{"transport failure", fmt.Errorf("dial: %w", model.ErrServer), model.ErrServer, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{err: tt.err}
			leads, store := newLeadService(up)
			defer store.Close()
			svc := NewExportService(leads, up)
			ctx := context.Background()

			sess, err := leads.Login(ctx, "k")
			if err != nil {
				t.Fatal(err)
			}

			// a sessão salva também guarda a falha
			stored, _ := store.Get(ctx, sess.ID)
			if stored.FetchFailure == nil || stored.FetchFailure.Status != tt.wantStatus {
				t.Fatalf("expected fetch failure with status %d, got %+v", tt.wantStatus, stored.FetchFailure)
			}

			buf, err := svc.XLSX(ctx, stored)
			if buf != nil || !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v and no workbook, got %v", tt.wantErr, err)
			}
			if model.CurrentError(err) != stored.LastError {
				t.Errorf("expected %q, got %q", stored.LastError, model.CurrentError(err))
			}
		})
	}
}

func TestExportXLSXRecoversAfterRefresh(t *testing.T) {
	up := &fakeUpstream{err: &model.UpstreamError{Status: 500, Message: "down"}}
	leads, store := newLeadService(up)
	defer store.Close()
	svc := NewExportService(leads, up)
	ctx := context.Background()

	sess, _ := leads.Login(ctx, "k")
	if _, err := svc.XLSX(ctx, sess); err == nil {
		t.Fatal("expected error while the fetch is failing")
	}

	up.err = nil
	up.leads = sampleLeads()
	if err := leads.Refresh(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if sess.FetchFailure != nil {
		t.Error("successful refresh must clear the failure")
	}
	if _, err := svc.XLSX(ctx, sess); err != nil {
		t.Errorf("expected workbook after refresh, got %v", err)
	}
}
