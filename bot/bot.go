// Package bot adapts the Telegram Bot API to the relay core. It owns the
// update loop (long polling or webhook), the command and callback handlers,
// and the transport-side implementations of the relay interfaces: member
// lookup, video copying, and message-existence probing.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/onnwee/telecarousel/config"
	"github.com/onnwee/telecarousel/relay"
	"github.com/onnwee/telecarousel/store"
)

type Bot struct {
	api        *tgbotapi.BotAPI
	cfg        *config.Config
	gate       *relay.Gate
	dispatcher *relay.Dispatcher
	catalog    store.CatalogStore
	indexer    *relay.Indexer

	// OnScanComplete, when set, runs after every finished scan (used for
	// durable bookkeeping).
	OnScanComplete func(context.Context)

	webhookUpdates chan tgbotapi.Update
}

// New connects to the Telegram Bot API and wires the relay core around it.
func New(cfg *config.Config, catalog store.CatalogStore, state store.PlaybackStore) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return build(api, cfg, catalog, state), nil
}

// NewWithEndpoint is New against a custom API endpoint (tests).
func NewWithEndpoint(cfg *config.Config, catalog store.CatalogStore, state store.PlaybackStore, endpoint string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return build(api, cfg, catalog, state), nil
}

func build(api *tgbotapi.BotAPI, cfg *config.Config, catalog store.CatalogStore, state store.PlaybackStore) *Bot {
	b := &Bot{
		api:            api,
		cfg:            cfg,
		catalog:        catalog,
		webhookUpdates: make(chan tgbotapi.Update, 128),
	}
	b.gate = &relay.Gate{
		Lookup:    b,
		ForceJoin: relay.ChatRef{Username: cfg.ForceJoinChannel},
		Source:    relay.ChatRef{ID: cfg.SourceChannelID},
	}
	b.dispatcher = &relay.Dispatcher{Catalog: catalog, State: state, Copier: b}

	var prober relay.Prober
	if cfg.ProbeChatID != 0 {
		prober = b
	}
	b.indexer = relay.NewIndexer(catalog, prober, relay.ScanPolicy{
		UpperBound:             cfg.ScanUpperBound,
		MaxConsecutiveFailures: cfg.ScanMaxConsecFails,
		ProbesPerSecond:        cfg.ScanProbesPerSecond,
		BatchSize:              cfg.ScanBatchSize,
		BatchDelay:             cfg.ScanBatchDelay,
	})
	return b
}

// Indexer exposes the channel scanner for the startup kick and the status surface.
func (b *Bot) Indexer() *relay.Indexer { return b.indexer }

// Username returns the bot account name reported by getMe.
func (b *Bot) Username() string { return b.api.Self.UserName }

// Run consumes updates until the context ends. Long polling is the default;
// when cfg.WebhookURL is set the loop is fed by WebhookHandler instead.
func (b *Bot) Run(ctx context.Context) error {
	var updates tgbotapi.UpdatesChannel
	if b.cfg.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(b.cfg.WebhookURL)
		if err != nil {
			return fmt.Errorf("webhook config: %w", err)
		}
		if _, err := b.api.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		updates = b.webhookUpdates
		slog.Info("bot started in webhook mode", slog.String("url", b.cfg.WebhookURL), slog.String("component", "bot"))
	} else {
		// Stale webhooks block getUpdates; clear any leftover registration.
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
			slog.Warn("delete webhook failed", slog.Any("err", err), slog.String("component", "bot"))
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updates = b.api.GetUpdatesChan(u)
		slog.Info("bot started in long-polling mode", slog.String("username", b.Username()), slog.String("component", "bot"))
	}

	for {
		select {
		case <-ctx.Done():
			if b.cfg.WebhookURL == "" {
				b.api.StopReceivingUpdates()
			}
			slog.Info("bot update loop stopped", slog.String("component", "bot"))
			return nil
		case upd := <-updates:
			go b.handleUpdate(ctx, upd)
		}
	}
}

// WebhookHandler parses webhook requests and feeds them to the update loop.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upd, err := b.api.HandleUpdate(r)
		if err != nil {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		select {
		case b.webhookUpdates <- *upd:
		default:
			slog.Warn("webhook update queue full, dropping update", slog.String("component", "bot"))
		}
		w.WriteHeader(http.StatusOK)
	})
}
