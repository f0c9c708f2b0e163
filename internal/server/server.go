package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"ticketfixture/internal/domain"
	"ticketfixture/internal/engine"
	"ticketfixture/internal/export"
	"ticketfixture/internal/generator"
	"ticketfixture/internal/logging"
	"ticketfixture/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Logger   *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"run not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError is the error envelope returned by every operation.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the fixture API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, logger))
	hcfg := huma.DefaultConfig("Ticket Fixture API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	hooks := newWebhookDispatcher(cfg.Engine.Config.Webhooks, logger)

	registerDocs(router, basePath)
	registerHealth(group)
	registerTickets(group, cfg.Engine)
	registerTicketsCSV(router, basePath, cfg.Engine, logger)
	registerStats(group, cfg.Engine)
	registerRuns(group, cfg.Engine, hooks)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body:   apiErrorBody{Code: code, Message: message, Details: details},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "must be") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Put, item.Post, item.Delete, item.Patch} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"}},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{item.Get, item.Put, item.Post, item.Delete, item.Patch} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Ticket Fixture API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

// generateParams are the optional query overrides shared by the generating endpoints.
type generateParams struct {
	Seed      string `query:"seed" doc:"Seed override; defaults to the configured seed"`
	Count     int    `query:"count" minimum:"0" maximum:"10000"`
	Reference string `query:"reference" example:"2024-06-01T10:00:00"`
}

func (p generateParams) options(e engine.Engine) (generator.Options, error) {
	opts, err := e.DefaultOptions()
	if err != nil {
		return opts, err
	}
	if p.Seed != "" {
		seed, err := strconv.ParseInt(p.Seed, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid seed %q", p.Seed)
		}
		opts.Seed = seed
	}
	if p.Count > 0 {
		opts.Count = p.Count
	}
	if p.Reference != "" {
		ref, err := domain.ParseTime(p.Reference)
		if err != nil {
			return opts, fmt.Errorf("invalid reference %q", p.Reference)
		}
		opts.Reference = ref
	}
	return opts, opts.Validate()
}

func registerTickets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tickets",
		Method:      http.MethodGet,
		Path:        "/tickets",
		Summary:     "Generate tickets",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *generateParams) (*struct {
		Body []TicketResponse `json:"body"`
	}, error) {
		opts, err := input.options(e)
		if err != nil {
			return nil, handleError(err)
		}
		records, err := e.Generate(opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TicketResponse `json:"body"`
		}{Body: mapTickets(records)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ticket",
		Method:      http.MethodGet,
		Path:        "/tickets/{id}",
		Summary:     "Generate a single ticket",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID        int    `path:"id"`
		Seed      string `query:"seed"`
		Count     int    `query:"count" minimum:"0" maximum:"10000"`
		Reference string `query:"reference"`
	}) (*struct {
		Body TicketResponse `json:"body"`
	}, error) {
		params := generateParams{Seed: input.Seed, Count: input.Count, Reference: input.Reference}
		opts, err := params.options(e)
		if err != nil {
			return nil, handleError(err)
		}
		if input.ID < 1 || input.ID > opts.Count {
			return nil, newAPIError(http.StatusNotFound, "not_found", "ticket not found", map[string]any{"id": input.ID})
		}
		records, err := e.Generate(opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TicketResponse `json:"body"`
		}{Body: ticketResponse(records[input.ID-1])}, nil
	})
}

// registerTicketsCSV serves the fixture file format directly through chi.
func registerTicketsCSV(r chi.Router, basePath string, e engine.Engine, logger *slog.Logger) {
	r.Get(path.Join(basePath, "tickets.csv"), func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		params := generateParams{Seed: q.Get("seed"), Reference: q.Get("reference")}
		if raw := q.Get("count"); raw != "" {
			count, err := strconv.Atoi(raw)
			if err != nil || count < 0 {
				respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "invalid count", map[string]any{"count": raw}))
				return
			}
			params.Count = count
		}
		opts, err := params.options(e)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		records, err := e.Generate(opts)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="ticket.csv"`)
		if err := export.Write(w, records); err != nil {
			logger.Warn("write csv response", "err", err)
		}
	})
}

func registerStats(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "ticket-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Summary statistics for a generated dataset",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *generateParams) (*struct {
		Body StatsResponse `json:"body"`
	}, error) {
		opts, err := input.options(e)
		if err != nil {
			return nil, handleError(err)
		}
		records, err := e.Generate(opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StatsResponse `json:"body"`
		}{Body: StatsResponse(e.Summarize(records))}, nil
	})
}

func registerRuns(api huma.API, e engine.Engine, hooks *webhookDispatcher) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-run",
		Method:        http.MethodPost,
		Path:          "/runs",
		Summary:       "Generate and store a dataset",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateRunRequest
	}) (*struct {
		Body RunResponse `json:"body"`
	}, error) {
		params := generateParams{Reference: input.Body.Reference}
		if input.Body.Seed != nil {
			params.Seed = strconv.FormatInt(*input.Body.Seed, 10)
		}
		if input.Body.Count != nil {
			if *input.Body.Count < 1 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "count must be at least 1", nil)
			}
			params.Count = *input.Body.Count
		}
		opts, err := params.options(e)
		if err != nil {
			return nil, handleError(err)
		}
		run, _, err := e.CreateRun(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		hooks.notify(ctx, "run.created", run)
		return &struct {
			Body RunResponse `json:"body"`
		}{Body: RunResponse(run)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List stored runs",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body []RunResponse `json:"body"`
	}, error) {
		runs, err := e.Repo.ListRuns(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []RunResponse `json:"body"`
		}{Body: mapRuns(runs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}",
		Summary:     "Get a stored run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID string `path:"run_id"`
	}) (*struct {
		Body RunResponse `json:"body"`
	}, error) {
		run, err := e.Repo.GetRun(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RunResponse `json:"body"`
		}{Body: RunResponse(run)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-run-tickets",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/tickets",
		Summary:     "List tickets of a stored run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID  string `path:"run_id"`
		Status string `query:"status"`
	}) (*struct {
		Body []TicketResponse `json:"body"`
	}, error) {
		records, err := e.RunTickets(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]TicketResponse, 0, len(records))
		for _, rec := range records {
			if input.Status != "" && string(rec.Status) != input.Status {
				continue
			}
			out = append(out, ticketResponse(rec))
		}
		return &struct {
			Body []TicketResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-ticket-events",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}/tickets/{id}/events",
		Summary:     "Event log of a stored ticket",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID string `path:"run_id"`
		ID    int    `path:"id"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		tk, err := e.Repo.GetTicket(ctx, input.RunID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(tk.EventLog)}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
