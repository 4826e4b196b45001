package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/example/storefront/internal/logger"
)

const telegramAPI = "https://api.telegram.org"

// TelegramService posts order alerts to the staff chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	httpClient  *http.Client
	log         *logger.Logger
}

// NewTelegramService creates a new TelegramService. Without a token or chat
// it only logs.
func NewTelegramService(botToken, adminChatID string, log *logger.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     telegramAPI,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         log.With("service", "TelegramService"),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to chatID.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" || chatID == "" {
		s.log.Debug("telegram not configured, message dropped", "chat_id", chatID)
		return nil
	}

	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.baseURL, "/"), s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// NotifyOrder implements OrderNotifier.
func (s *TelegramService) NotifyOrder(ctx context.Context, event OrderEvent) error {
	return s.SendMessage(ctx, s.adminChatID, FormatOrderMessage(event))
}

var orderHeadlines = map[string]string{
	OrderCreated:       "🛒 NEW ORDER",
	OrderCancelled:     "❌ ORDER CANCELLED",
	OrderDelivered:     "✅ ORDER DELIVERED",
	OrderStatusChanged: "🔄 ORDER UPDATED",
}

// FormatOrderMessage renders an order event for the staff chat.
func FormatOrderMessage(event OrderEvent) string {
	order := event.Order
	headline, ok := orderHeadlines[event.Type]
	if !ok {
		headline = event.Type
	}

	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.ProductTitle),
			item.Quantity,
			item.Price.StringFixed(2),
			item.LineTotal().StringFixed(2),
		)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", headline)
	fmt.Fprintf(&b, "<b>📋 Order:</b> %s\n", order.ID)
	fmt.Fprintf(&b, "<b>👤 Customer:</b> %s\n", html.EscapeString(order.FullName))
	fmt.Fprintf(&b, "<b>📞 Phone:</b> %s\n", html.EscapeString(order.Phone))
	if items.Len() > 0 {
		fmt.Fprintf(&b, "<b>📦 Items:</b>\n%s", items.String())
	}
	if order.PromoCode != "" {
		fmt.Fprintf(&b, "<b>🏷 Promo:</b> %s (-%s)\n", html.EscapeString(order.PromoCode), order.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "<b>💰 Total:</b> %s\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "<b>📍 Status:</b> %s\n", order.Status)
	b.WriteString("━━━━━━━━━━━━━━━━━━")
	return b.String()
}
