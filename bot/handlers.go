package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/onnwee/telecarousel/relay"
	"github.com/onnwee/telecarousel/telemetry"
)

const (
	callbackNextVideo = "next_video"
	callbackRetryJoin = "retry_join"
)

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.ChannelPost != nil:
		b.handleChannelPost(ctx, upd.ChannelPost)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	}
}

// handleChannelPost records live video posts from the source channel. The
// catalog add is idempotent, so a redelivered event leaves the size alone.
func (b *Bot) handleChannelPost(ctx context.Context, post *tgbotapi.Message) {
	if post.Chat == nil || post.Chat.ID != b.cfg.SourceChannelID || post.Video == nil {
		return
	}
	before := b.catalog.Size()
	b.catalog.Add(ctx, post.MessageID, time.Unix(int64(post.Date), 0))
	if b.catalog.Size() > before {
		if telemetry.VideosDiscovered != nil {
			telemetry.VideosDiscovered.Inc()
		}
		slog.Info("new channel video",
			slog.Int("message_id", post.MessageID),
			slog.Int("catalog_size", b.catalog.Size()),
			slog.String("component", "bot"))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		if !b.gate.IsMember(ctx, userID) {
			b.sendJoinPrompt(chatID)
			return
		}
		b.reply(chatID, fmt.Sprintf(
			"👋 Welcome to the Video Bot!\n\n"+
				"Use /next to get a video, or tap the \"Next Video\" button under any video you receive. "+
				"The rotation never ends: after the last video it starts over.\n\n"+
				"Videos in rotation: %d", b.catalog.Size()))
	case "next", "newvideo":
		if !b.gate.IsMember(ctx, userID) {
			b.sendJoinPrompt(chatID)
			return
		}
		b.deliver(ctx, userID, chatID)
	case "rescan":
		if !b.gate.IsAdmin(ctx, userID) {
			b.reply(chatID, "This command is for channel admins only.")
			return
		}
		b.reply(chatID, "🔄 Channel rescan started.")
		go func() {
			b.indexer.Run(ctx)
			if b.OnScanComplete != nil {
				b.OnScanComplete(ctx)
			}
		}()
	case "addvideo":
		if !b.gate.IsAdmin(ctx, userID) {
			b.reply(chatID, "This command is for channel admins only.")
			return
		}
		b.addVideos(ctx, chatID, msg.CommandArguments())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	userID := cb.From.ID
	chatID := userID // private chat id equals the user id
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}

	switch cb.Data {
	case callbackNextVideo:
		b.answerCallback(cb.ID, "")
		if !b.gate.IsMember(ctx, userID) {
			b.sendJoinPrompt(chatID)
			return
		}
		b.deliver(ctx, userID, chatID)
	case callbackRetryJoin:
		if !b.gate.IsMember(ctx, userID) {
			b.alertCallback(cb.ID, "❌ You still need to join the channel!")
			return
		}
		b.alertCallback(cb.ID, "✅ Success! You can now use the bot.")
		if cb.Message != nil {
			edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID,
				"✅ You're in! Use /next to get started.")
			if _, err := b.api.Request(edit); err != nil {
				slog.Warn("edit join prompt failed", slog.Any("err", err), slog.String("component", "bot"))
			}
		}
	default:
		b.answerCallback(cb.ID, "")
	}
}

// deliver runs one playback step and translates the result into user-facing text.
func (b *Bot) deliver(ctx context.Context, userID, chatID int64) {
	res := b.dispatcher.DeliverNext(ctx, userID, chatID)
	switch res.Outcome {
	case relay.OutcomeNoContent:
		b.reply(chatID, "📭 No videos available yet. Check back soon!")
	case relay.OutcomeFailed:
		if res.Permanent {
			b.reply(chatID, "❌ That video is no longer available. It has been skipped; use /next for the following one.")
		} else {
			b.reply(chatID, "❌ Couldn't send the video right now. Please try /next again in a moment.")
		}
	}
	// Delivered: the copied video itself is the reply.
}

func (b *Bot) addVideos(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /addvideo <message-id> [message-id ...]")
		return
	}
	added, bad := 0, 0
	before := b.catalog.Size()
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil || id <= 0 {
			bad++
			continue
		}
		b.catalog.Add(ctx, id, time.Now())
	}
	added = b.catalog.Size() - before
	reply := fmt.Sprintf("Added %d new video(s). Catalog size: %d.", added, b.catalog.Size())
	if bad > 0 {
		reply += fmt.Sprintf(" Skipped %d invalid id(s).", bad)
	}
	b.reply(chatID, reply)
}

func (b *Bot) sendJoinPrompt(chatID int64) {
	m := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"⚠️ You must join our channel to use this bot.\n\nPlease join @%s and then tap Retry below.",
		b.cfg.ForceJoinChannel))
	m.ReplyMarkup = b.joinKeyboard()
	if _, err := b.api.Send(m); err != nil {
		slog.Warn("send join prompt failed", slog.Any("err", err), slog.String("component", "bot"))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Warn("send reply failed", slog.Any("err", err), slog.String("component", "bot"))
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		slog.Warn("answer callback failed", slog.Any("err", err), slog.String("component", "bot"))
	}
}

func (b *Bot) alertCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(id, text)); err != nil {
		slog.Warn("answer callback failed", slog.Any("err", err), slog.String("component", "bot"))
	}
}

func nextKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Next Video", callbackNextVideo)))
}

func (b *Bot) joinKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Join Channel", "https://t.me/"+b.cfg.ForceJoinChannel)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I Joined - Retry", callbackRetryJoin)))
}
