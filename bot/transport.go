package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/onnwee/telecarousel/relay"
)

// MemberStatus implements relay.MemberLookup over getChatMember.
func (b *Bot) MemberStatus(ctx context.Context, chat relay.ChatRef, userID int64) (string, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chat.ID, UserID: userID},
	}
	if chat.Username != "" {
		cfg.SuperGroupUsername = "@" + chat.Username
	}
	member, err := b.api.GetChatMember(cfg)
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

// CopyVideo implements relay.Copier: the source message is copied (origin
// hidden) to the user with the "next" button attached.
func (b *Bot) CopyVideo(ctx context.Context, chatID int64, messageID int) error {
	cp := tgbotapi.NewCopyMessage(chatID, b.cfg.SourceChannelID, messageID)
	cp.ReplyMarkup = nextKeyboard()
	_, err := b.api.CopyMessage(cp)
	return err
}

// Probe implements relay.Prober. There is no "get message by id" in the Bot
// API, so existence is tested by forwarding the message into a scratch chat;
// the forwarded copy tells us whether the original is a video and is deleted
// right away. A permanent "not found" style error means the id is dead, not
// that the probe failed.
func (b *Bot) Probe(ctx context.Context, messageID int) (relay.ProbeResult, error) {
	fwd := tgbotapi.NewForward(b.cfg.ProbeChatID, b.cfg.SourceChannelID, messageID)
	msg, err := b.api.Send(fwd)
	if err != nil {
		if relay.IsPermanentDeliveryError(err) {
			return relay.ProbeResult{}, nil
		}
		return relay.ProbeResult{}, err
	}

	res := relay.ProbeResult{Exists: true, IsVideo: msg.Video != nil}
	if msg.ForwardDate > 0 {
		res.PostedAt = time.Unix(int64(msg.ForwardDate), 0)
	}

	// Best-effort cleanup of the probe copy.
	_, _ = b.api.Request(tgbotapi.NewDeleteMessage(b.cfg.ProbeChatID, msg.MessageID))

	return res, nil
}
