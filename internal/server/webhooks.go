package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"ticketfixture/internal/config"
	"ticketfixture/internal/domain"
)

const defaultWebhookTimeout = 5 * time.Second

type webhookDispatcher struct {
	webhooks []config.WebhookConfig
	client   *http.Client
	logger   *slog.Logger
	wg       sync.WaitGroup
	mu       sync.Mutex
	seq      int64
}

func newWebhookDispatcher(hooks []config.WebhookConfig, logger *slog.Logger) *webhookDispatcher {
	return &webhookDispatcher{
		webhooks: hooks,
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		logger:   logger,
	}
}

type webhookEvent struct {
	Delivery int64      `json:"delivery"`
	Type     string     `json:"type"`
	Actor    string     `json:"actor,omitempty"`
	TS       string     `json:"ts"`
	Run      domain.Run `json:"run"`
}

// notify delivers evtType for run to every matching webhook in the background.
func (d *webhookDispatcher) notify(ctx context.Context, evtType string, run domain.Run) {
	if d == nil || len(d.webhooks) == 0 {
		return
	}
	var actor string
	if p, ok := PrincipalFromContext(ctx); ok {
		actor = p.Subject
	}
	d.mu.Lock()
	d.seq++
	body := webhookEvent{
		Delivery: d.seq,
		Type:     evtType,
		Actor:    actor,
		TS:       time.Now().UTC().Format(time.RFC3339),
		Run:      run,
	}
	d.mu.Unlock()
	for _, hook := range d.webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" || !newEventFilter(hook.Events).match(evtType) {
			continue
		}
		d.wg.Add(1)
		go func(hook config.WebhookConfig) {
			defer d.wg.Done()
			if err := d.post(context.Background(), hook, body); err != nil {
				d.logger.Warn("webhook delivery failed", "url", hook.URL, "type", evtType, "err", err)
			}
		}(hook)
	}
}

// wait blocks until in-flight deliveries finish.
func (d *webhookDispatcher) wait() {
	d.wg.Wait()
}

func (d *webhookDispatcher) post(ctx context.Context, hook config.WebhookConfig, evt webhookEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	client := d.client
	if hook.TimeoutSeconds > 0 {
		client = &http.Client{Timeout: time.Duration(hook.TimeoutSeconds) * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-TF-Event", evt.Type)
	req.Header.Set("X-TF-Delivery", fmt.Sprintf("%d", evt.Delivery))
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-TF-Secret", hook.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(events []string) eventFilter {
	set := make(map[string]struct{}, len(events))
	for _, evt := range events {
		if key := strings.TrimSpace(evt); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
