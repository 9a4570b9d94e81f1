// Package submissions carries user questions and donated files to the operators.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/handlers/base"
	"github.com/iamwavecut/gatebot/internal/handlers/registration"
	"github.com/iamwavecut/gatebot/internal/i18n"
)

type submissionStore interface {
	CreateSubmission(ctx context.Context, sub *db.Submission) (int64, error)
	GetSubmission(ctx context.Context, id int64) (*db.Submission, error)
	DecideSubmission(ctx context.Context, id int64, status db.SubmissionStatus, decidedBy int64) error
}

// FlowStarter opens a registration form on behalf of an operator.
type FlowStarter interface {
	Start(ctx context.Context, operatorID int64, att registration.Attachment) error
	Cancel(ctx context.Context, operatorID int64) error
}

type Submissions struct {
	*base.BaseHandler
	store submissionStore
	flows FlowStarter
}

func NewSubmissions(s bot.Service, store submissionStore, flows FlowStarter) *Submissions {
	return &Submissions{
		BaseHandler: base.NewBaseHandler(s, "submissions"),
		store:       store,
		flows:       flows,
	}
}

func (h *Submissions) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}

	if cq := u.CallbackQuery; cq != nil {
		id, approve, ok := codes.ParseDecision(cq.Data)
		if !ok || !h.IsOperator(user) {
			return true, nil
		}
		return false, h.decide(ctx, cq, user, id, approve)
	}

	msg := u.Message
	if msg == nil || !bot.IsPrivate(chat) || h.IsOperator(user) {
		return true, nil
	}
	lang := h.GetLanguage(user)

	if msg.IsCommand() {
		if msg.Command() != "ask" {
			return true, nil
		}
		return false, h.ask(chat.ID, user, lang, strings.TrimSpace(msg.CommandArguments()))
	}
	if kind, ref, ok := db.ContentKindOf(msg); ok {
		return false, h.donate(ctx, msg, chat, user, lang, kind, ref)
	}
	return true, nil
}

func (h *Submissions) ask(chatID int64, user *api.User, lang, question string) error {
	client := h.GetService().GetBot()
	if question == "" {
		_, err := bot.SendText(client, chatID, i18n.Get("Usage: /ask <your question>", lang))
		return err
	}

	header := fmt.Sprintf(i18n.Get("Question from %s (id %d):", h.operatorLang()), bot.GetFullName(user), user.ID)
	for _, operatorID := range h.GetService().GetConfig().AdminIDs {
		if _, err := bot.SendText(client, operatorID, header+"\n"+question); err != nil {
			h.GetLogger().WithFields(log.Fields{"operator_id": operatorID, "error": err.Error()}).Warn("cant forward question")
		}
	}
	_, err := bot.SendText(client, chatID, i18n.Get("Your question was sent to the admins.", lang))
	return err
}

func (h *Submissions) donate(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User, lang string, kind db.ContentKind, ref string) error {
	entry := h.GetLogger().WithFields(log.Fields{"method": "donate", "user_id": user.ID})
	sub := &db.Submission{
		UserID:     user.ID,
		ChatID:     chat.ID,
		MessageID:  msg.MessageID,
		Kind:       kind,
		ContentRef: ref,
		Caption:    msg.Caption,
	}
	id, err := h.store.CreateSubmission(ctx, sub)
	if err != nil {
		return err
	}
	entry.WithField("submission_id", id).Info("submission received")

	olang := h.operatorLang()
	markup := api.NewInlineKeyboardMarkup(api.NewInlineKeyboardRow(
		api.NewInlineKeyboardButtonData(i18n.Get("✅ Approve", olang), codes.DecisionData(id, true)),
		api.NewInlineKeyboardButtonData(i18n.Get("❌ Reject", olang), codes.DecisionData(id, false)),
	))
	client := h.GetService().GetBot()
	for _, operatorID := range h.GetService().GetConfig().AdminIDs {
		cp := api.NewCopyMessage(operatorID, chat.ID, msg.MessageID)
		cp.Caption = fmt.Sprintf(i18n.Get("Submission #%d from %s (id %d)", olang), id, bot.GetFullName(user), user.ID)
		cp.ReplyMarkup = markup
		if _, err := client.CopyMessage(cp); err != nil {
			entry.WithFields(log.Fields{"operator_id": operatorID, "error": err.Error()}).Warn("cant copy submission")
		}
	}

	_, err = bot.SendText(client, chat.ID, i18n.Get("Thanks! Your file was sent to the admins for review.", lang))
	return err
}

func (h *Submissions) decide(ctx context.Context, cq *api.CallbackQuery, operator *api.User, id int64, approve bool) error {
	client := h.GetService().GetBot()
	lang := h.GetLanguage(operator)
	entry := h.GetLogger().WithFields(log.Fields{"method": "decide", "submission_id": id, "operator_id": operator.ID})

	sub, err := h.store.GetSubmission(ctx, id)
	if err != nil {
		_ = bot.AnswerCallback(client, cq.ID, "", false)
		return err
	}
	if sub == nil {
		return bot.AnswerCallback(client, cq.ID, i18n.Get("Submission not found.", lang), true)
	}
	if sub.Status != db.SubmissionPending {
		return bot.AnswerCallback(client, cq.ID, i18n.Get("This submission was already decided.", lang), true)
	}

	status := db.SubmissionRejected
	if approve {
		status = db.SubmissionApproved
		err := h.flows.Start(ctx, operator.ID, registration.Attachment{
			Kind:         sub.Kind,
			Ref:          sub.ContentRef,
			ChatID:       sub.ChatID,
			MessageID:    sub.MessageID,
			SubmissionID: sub.ID,
		})
		if errors.Is(err, registration.ErrRegistrationPending) {
			return bot.AnswerCallback(client, cq.ID, i18n.Get("Finish the current registration first, or send /cancel.", lang), true)
		}
		if err != nil {
			_ = bot.AnswerCallback(client, cq.ID, "", false)
			return err
		}
	}

	if err := h.store.DecideSubmission(ctx, id, status, operator.ID); err != nil {
		if approve {
			if cerr := h.flows.Cancel(ctx, operator.ID); cerr != nil {
				entry.WithField("error", cerr.Error()).Error("cant roll back registration form")
			}
		}
		if errors.Is(err, db.ErrAlreadyDecided) {
			return bot.AnswerCallback(client, cq.ID, i18n.Get("This submission was already decided.", lang), true)
		}
		_ = bot.AnswerCallback(client, cq.ID, "", false)
		return err
	}
	entry.WithField("status", string(status)).Info("submission decided")

	toast := i18n.Get("Rejected.", lang)
	donorText := i18n.Get("Sorry, your submission was declined.", h.GetService().GetConfig().DefaultLanguage)
	if approve {
		toast = i18n.Get("Approved.", lang)
		donorText = i18n.Get("Your submission was approved. Thank you!", h.GetService().GetConfig().DefaultLanguage)
	}
	if err := bot.AnswerCallback(client, cq.ID, toast, false); err != nil {
		entry.WithField("error", err.Error()).Warn("cant answer callback")
	}
	if cq.Message != nil {
		strip := api.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID, api.InlineKeyboardMarkup{
			InlineKeyboard: [][]api.InlineKeyboardButton{},
		})
		if _, err := client.Request(strip); err != nil {
			entry.WithField("error", err.Error()).Debug("cant remove decision buttons")
		}
	}
	if _, err := bot.SendText(client, sub.UserID, donorText); err != nil {
		entry.WithField("error", err.Error()).Warn("cant notify donor")
	}
	return nil
}

func (h *Submissions) operatorLang() string {
	return h.GetService().GetConfig().DefaultLanguage
}
