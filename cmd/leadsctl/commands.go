package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/client"
	"github.com/cleberrangel/leads-admin-api/internal/logger"
	"github.com/cleberrangel/leads-admin-api/internal/model"
	"github.com/cleberrangel/leads-admin-api/internal/service"
	"github.com/cleberrangel/leads-admin-api/internal/session"
	"github.com/cleberrangel/leads-admin-api/internal/viewmodel"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	baseURL string
	chatURL string
	key     string
	region  string
	timeout time.Duration
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "leadsctl",
		Short:         "Consulta, exporta e conversa com a API de leads",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitWithWriter(getenvDefault(getenv, "LOG_LEVEL", "warn"), false, cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", getenv("LEADS_API_BASE_URL"), "URL base da API de leads")
	flags.StringVar(&opts.chatURL, "chat-url", getenv("CHAT_API_URL"), "URL do endpoint de chat (padrão: <base-url>/chat)")
	flags.StringVar(&opts.key, "key", getenv("LEADS_ADMIN_KEY"), "chave de admin")
	flags.StringVar(&opts.region, "region", getenvDefault(getenv, "PHONE_REGION", "IN"), "região padrão dos telefones")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout das requisições")

	root.AddCommand(newLeadsCmd(opts), newExportCmd(opts), newChatCmd(opts))
	return root
}

func newLeadsCmd(opts *globalOptions) *cobra.Command {
	var (
		search string
		sort   string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Lista uma página de leads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := viewmodel.LookupSortDirection(sort); !ok {
				return fmt.Errorf("--sort deve ser newest ou oldest")
			}
			leads, err := opts.leadService()
			if err != nil {
				return err
			}

			sess, err := opts.session()
			if err != nil {
				return err
			}

			view, err := leads.Query(cmd.Context(), sess, model.LeadQuery{
				Search: &search,
				Sort:   &sort,
				Page:   &page,
			})
			if err != nil {
				return err
			}
			if view.Error != "" {
				return errors.New(view.Error)
			}

			return printLeads(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "filtro por nome, país ou contato")
	cmd.Flags().StringVar(&sort, "sort", "newest", "newest ou oldest")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "página")
	return cmd
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		format string
		search string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Baixa os leads em CSV (da API) ou XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			leads, err := opts.leadService()
			if err != nil {
				return err
			}
			sess, err := opts.session()
			if err != nil {
				return err
			}
			exporter := service.NewExportService(leads, opts.leadsClient())
			ctx := cmd.Context()

			var data []byte
			switch format {
			case "csv":
				data, err = exporter.CSV(ctx, sess)
			case "xlsx":
				if search != "" {
					view, err := leads.Query(ctx, sess, model.LeadQuery{Search: &search})
					if err != nil {
						return err
					}
					if view.Error != "" {
						return errors.New(view.Error)
					}
				}
				buf, xerr := exporter.XLSX(ctx, sess)
				if buf != nil {
					data = buf.Bytes()
				}
				err = xerr
			default:
				return fmt.Errorf("formato desconhecido %q", format)
			}
			if err != nil {
				return errors.New(model.CurrentError(err))
			}

			if output == "" {
				output = service.CSVFileName
				if format == "xlsx" {
					output = service.XLSXFileName
				}
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("gravar %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s salvo (%d bytes)\n", output, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "arquivo de saída (- para stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv ou xlsx")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filtro aplicado no XLSX")
	return cmd
}

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <mensagem>",
		Short: "Envia uma mensagem ao chatbot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.baseURL == "" && opts.chatURL == "" {
				return errMissingBaseURL
			}
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return model.ErrEmptyMessage
			}

			url := opts.chatURL
			if url == "" {
				url = strings.TrimRight(opts.baseURL, "/") + "/chat"
			}
			chat := client.NewChatClient(url, client.Options{Timeout: opts.timeout})

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			reply, err := chat.Send(ctx, message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

var errMissingBaseURL = errors.New("defina --base-url ou LEADS_API_BASE_URL")

func (o *globalOptions) leadsClient() *client.LeadsClient {
	return client.NewLeadsClient(strings.TrimRight(o.baseURL, "/"), client.Options{Timeout: o.timeout})
}

// leadService monta o serviço sem store persistente: o CLI só usa sessões de uso único
func (o *globalOptions) leadService() (*service.LeadService, error) {
	if o.baseURL == "" {
		return nil, errMissingBaseURL
	}
	store := session.NewMemoryStore(time.Minute)
	return service.NewLeadService(store, o.leadsClient(), "", o.region), nil
}

func (o *globalOptions) session() (*session.Session, error) {
	key := strings.TrimSpace(o.key)
	if key == "" {
		return nil, errors.New("defina --key ou LEADS_ADMIN_KEY")
	}
	return session.NewEphemeral(key), nil
}

func printLeads(out io.Writer, view *model.LeadsView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOUNTRY\tCONTACT\tDATE\tWHATSAPP")
	for _, row := range view.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			orDash(row.Name), orDash(row.Country), orDash(row.PhoneDisplay), row.Date, orDash(row.WhatsAppURL))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if view.TotalCount == 0 {
		fmt.Fprintln(out, "No leads found")
	}
	_, err := fmt.Fprintf(out, "Page %d/%d, Total %d\n", view.CurrentPage, view.TotalPages, view.TotalCount)
	return err
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func getenvDefault(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}
