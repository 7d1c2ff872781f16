// Package larkbot connects the bot runtime to Lark direct messages over the
// event WebSocket.
package larkbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/session"
)

const (
	dedupCacheSize = 2048
	dedupTTL       = 10 * time.Minute
)

// Handler answers one inbound chat message.
type Handler interface {
	OnMessage(ctx context.Context, userID, text string) session.Reply
}

// Config identifies the Lark app.
type Config struct {
	AppID     string
	AppSecret string
	// BaseDomain overrides the Open API host, e.g. for Feishu.
	BaseDomain string
}

// Gateway receives im.message.receive_v1 events and answers the sender. It
// implements bot.Notifier for replies that arrive later.
type Gateway struct {
	cfg       Config
	handler   Handler
	messenger Messenger
	log       *slog.Logger
	now       func() time.Time

	dedupMu sync.Mutex
	dedup   *lru.Cache[string, time.Time]
}

// NewGateway builds a gateway. A nil messenger selects the SDK messenger.
func NewGateway(cfg Config, handler Handler, messenger Messenger) (*Gateway, error) {
	if handler == nil {
		return nil, errors.New("lark gateway requires a handler")
	}
	if strings.TrimSpace(cfg.AppID) == "" || strings.TrimSpace(cfg.AppSecret) == "" {
		return nil, errors.New("lark gateway requires app_id and app_secret")
	}
	dedup, err := lru.New[string, time.Time](dedupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("lark message deduper init: %w", err)
	}
	if messenger == nil {
		messenger = NewSDKMessenger(lark.NewClient(cfg.AppID, cfg.AppSecret, clientOptions(cfg)...))
	}
	return &Gateway{
		cfg:       cfg,
		handler:   handler,
		messenger: messenger,
		log:       logging.New("larkbot"),
		now:       time.Now,
		dedup:     dedup,
	}, nil
}

func clientOptions(cfg Config) []lark.ClientOptionFunc {
	var opts []lark.ClientOptionFunc
	if d := strings.TrimSpace(cfg.BaseDomain); d != "" {
		opts = append(opts, lark.WithOpenBaseUrl(d))
	}
	return opts
}

// Start connects the event WebSocket and blocks until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	d := dispatcher.NewEventDispatcher("", "")
	d.OnP2MessageReceiveV1(g.handleMessage)

	wsOpts := []larkws.ClientOption{
		larkws.WithEventHandler(d),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	}
	if domain := strings.TrimSpace(g.cfg.BaseDomain); domain != "" {
		wsOpts = append(wsOpts, larkws.WithDomain(domain))
	}
	g.log.Info("lark gateway connecting", "app_id", g.cfg.AppID)
	return larkws.NewClient(g.cfg.AppID, g.cfg.AppSecret, wsOpts...).Start(ctx)
}

func (g *Gateway) handleMessage(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	msg := event.Event.Message
	if deref(msg.ChatType) != "p2p" || deref(msg.MessageType) != "text" {
		return nil
	}
	userID := senderID(event)
	if userID == "" {
		g.log.Warn("lark message without sender open_id")
		return nil
	}
	if id := deref(msg.MessageId); id != "" && g.isDuplicate(id) {
		g.log.Debug("lark duplicate message skipped", "message_id", id)
		return nil
	}

	reply := g.handler.OnMessage(ctx, userID, extractText(deref(msg.Content)))
	if err := g.Notify(ctx, userID, reply); err != nil {
		g.log.Error("lark reply failed", "user", userID, "err", err)
	}
	return nil
}

// Notify sends reply to a user: the text with its keyboard listed, then
// each attachment as a file message.
func (g *Gateway) Notify(ctx context.Context, userID string, reply session.Reply) error {
	if err := g.messenger.SendText(ctx, userID, renderText(reply)); err != nil {
		return err
	}
	var errs []error
	for _, f := range reply.Files {
		key, err := g.messenger.UploadFile(ctx, f.Path, f.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", f.Name, err))
			continue
		}
		if err := g.messenger.SendFile(ctx, userID, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Gateway) isDuplicate(messageID string) bool {
	g.dedupMu.Lock()
	defer g.dedupMu.Unlock()
	now := g.now()
	if ts, ok := g.dedup.Get(messageID); ok {
		if now.Sub(ts) <= dedupTTL {
			return true
		}
		g.dedup.Remove(messageID)
	}
	g.dedup.Add(messageID, now)
	return false
}

// renderText appends the keyboard as bracketed options, one row per line.
func renderText(r session.Reply) string {
	if len(r.Keyboard) == 0 {
		return r.Text
	}
	var b strings.Builder
	b.WriteString(r.Text)
	b.WriteString("\n")
	for _, row := range r.Keyboard {
		b.WriteString("\n")
		for i, label := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString("[" + label + "]")
		}
	}
	return b.String()
}

// extractText parses a text message body: {"text":"..."}. Mentions of the
// bot arrive as @_user_N placeholders and are dropped.
func extractText(raw string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return strings.TrimSpace(raw)
	}
	fields := strings.Fields(parsed.Text)
	kept := fields[:0]
	for _, f := range fields {
		if !strings.HasPrefix(f, "@_user_") {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func senderID(event *larkim.P2MessageReceiveV1) string {
	if event.Event.Sender == nil || event.Event.Sender.SenderId == nil {
		return ""
	}
	return deref(event.Event.Sender.SenderId.OpenId)
}

// fileType maps a file name to an im/v1/files file_type.
func fileType(name string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."); ext {
	case "pdf", "doc", "xls", "ppt", "mp4", "opus":
		return ext
	}
	return "stream"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
