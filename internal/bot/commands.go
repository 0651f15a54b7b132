package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/common"
	"serotonyl.ru/stars-casino/internal/features/accounts"
)

const helpText = `🎰 Звёздное казино

Крутите барабан в мини-приложении: ставка списывается сразу, выигрыш зачисляется мгновенно.
Выпал ⚡ Буст — следующий выигрыш удваивается.

Команды:
/start — открыть казино
/balance — баланс
/help — эта справка`

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *telego.Message, cmd string, args []string) {
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("Команда бота")

	chatID := message.Chat.ID
	switch cmd {
	case "start":
		b.handleStart(ctx, message)
	case "balance", "баланс":
		b.handleBalance(ctx, message)
	case "help", "помощь":
		b.sendMessage(ctx, tu.Message(tu.ID(chatID), helpText))
	}
}

func (b *Bot) handleStart(ctx context.Context, message *telego.Message) {
	acc, err := b.accounts.GetOrCreate(ctx, message.From.ID, profileOf(message.From))
	if err != nil {
		log.WithError(err).WithField("user_id", message.From.ID).Error("Ошибка регистрации игрока из бота")
		b.sendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), "❌ Не удалось загрузить счёт, попробуйте позже"))
		return
	}

	text := fmt.Sprintf("👋 Привет, %s!\n\n💰 На счёте %s. Жмите кнопку, чтобы крутить барабан.",
		acc.DisplayName(), common.FormatBalance(acc.Balance))
	params := tu.Message(tu.ID(message.Chat.ID), text)
	if b.opts.WebAppURL != "" {
		params = params.WithReplyMarkup(tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton("🎰 Играть").WithWebApp(&telego.WebAppInfo{URL: b.opts.WebAppURL}),
			),
		))
	}
	b.sendMessage(ctx, params)
}

func (b *Bot) handleBalance(ctx context.Context, message *telego.Message) {
	chatID := tu.ID(message.Chat.ID)

	acc, err := b.accounts.GetOrCreate(ctx, message.From.ID, profileOf(message.From))
	if err != nil {
		log.WithError(err).WithField("user_id", message.From.ID).Error("Ошибка чтения баланса из бота")
		b.sendMessage(ctx, tu.Message(chatID, "❌ Не удалось загрузить счёт, попробуйте позже"))
		return
	}
	if acc.IsBanned {
		b.sendMessage(ctx, tu.Message(chatID, "🚫 Аккаунт заблокирован"))
		return
	}

	text := fmt.Sprintf("💰 Ваш баланс: %s\n🎰 Сыграно: %s", common.FormatBalance(acc.Balance),
		fmt.Sprintf("%s %s", common.FormatNumber(acc.TotalSpins), common.PluralizeSpins(acc.TotalSpins)))
	if acc.HasBoost {
		text += "\n⚡ Буст x2 ждёт следующего выигрыша"
	}
	b.sendMessage(ctx, tu.Message(chatID, text))
}

func profileOf(u *telego.User) accounts.Profile {
	return accounts.Profile{
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
		IsPremium:    u.IsPremium,
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, params *telego.SendMessageParams) error {
	if _, err := b.api.SendMessage(ctx, params); err != nil {
		log.WithError(err).WithField("chat_id", params.ChatID.ID).Warn("Ошибка отправки сообщения")
		return err
	}
	return nil
}
