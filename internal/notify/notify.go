// Package notify turns rental events into Discord embeds.
package notify

import (
	"context"
	"fmt"
	"time"

	"rental-service/internal/model"
	"rental-service/pkg/discord"
	"rental-service/pkg/logger"
	"rental-service/prometheus"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	footerText  = "Hệ thống quản lý phòng trọ"
	dateLayout  = "02/01/2006"
	clockLayout = "02/01/2006 15:04:05"
)

// FormatVND renders an amount the way Vietnamese invoices do, e.g. 1.090.000 ₫
func FormatVND(amount decimal.Decimal) string {
	f, _ := amount.Float64()
	return humanize.FormatFloat("#.###,", f) + " ₫"
}

func newEmbed(title, description string, color int, now time.Time) discord.Embed {
	return discord.Embed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      []discord.Field{},
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &discord.Footer{Text: footerText},
	}
}

// addCapped adds one field per item and, when items do not fit, replaces
// the last slot with an overflow note so the embed stays within MaxFields
func addCapped(e *discord.Embed, n int, noun string, field func(i int) discord.Field) {
	room := discord.MaxFields - len(e.Fields)
	shown := n
	if n > room {
		shown = room - 1
	}
	for i := 0; i < shown; i++ {
		f := field(i)
		e.AddField(f.Name, f.Value, f.Inline)
	}
	if shown < n {
		e.AddField("⚠️ Thông báo", fmt.Sprintf("Và %d %s khác...", n-shown, noun), false)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// PaymentReminderEmbed lists unpaid payments, one field per room
func PaymentReminderEmbed(payments []model.Payment, loc *time.Location, now time.Time) discord.Embed {
	e := newEmbed("🔔 Nhắc nhở thanh toán",
		fmt.Sprintf("Có %d phòng cần thanh toán", len(payments)), discord.ColorRed, now)
	addCapped(&e, len(payments), "phòng", func(i int) discord.Field {
		p := payments[i]
		var room, tenant string
		if p.Room != nil {
			room = p.Room.Number
		}
		if p.Tenant != nil {
			tenant = p.Tenant.Name
		}
		return discord.Field{
			Name: "Phòng " + orNA(room),
			Value: fmt.Sprintf("👤 %s\n📅 Hạn: %s\n💰 Số tiền: %s",
				orNA(tenant), p.DueDate.In(loc).Format(dateLayout), FormatVND(p.TotalAmount)),
			Inline: true,
		}
	})
	return e
}

// ContractExpiryEmbed lists contracts that end soon
func ContractExpiryEmbed(contracts []model.Contract, loc *time.Location, now time.Time) discord.Embed {
	e := newEmbed("⏰ Hợp đồng sắp hết hạn",
		fmt.Sprintf("Có %d hợp đồng sắp hết hạn", len(contracts)), discord.ColorYellow, now)
	addCapped(&e, len(contracts), "hợp đồng", func(i int) discord.Field {
		c := contracts[i]
		var room, tenant string
		if c.Room != nil {
			room = c.Room.Number
		}
		if c.Tenant != nil {
			tenant = c.Tenant.Name
		}
		return discord.Field{
			Name: "Hợp đồng " + c.ContractNumber,
			Value: fmt.Sprintf("🏠 Phòng: %s\n👤 Khách: %s\n📅 Hết hạn: %s\n⏳ Còn: %d ngày",
				orNA(room), orNA(tenant), c.EndDate.In(loc).Format(dateLayout), c.DaysRemaining(now)),
			Inline: true,
		}
	})
	return e
}

// SystemStatus is a health report pushed to the channel
type SystemStatus struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	Color             int    `json:"color"`
	Uptime            string `json:"uptime"`
	DBStatus          string `json:"dbStatus"`
	MemoryUsage       string `json:"memoryUsage"`
	ActiveConnections int    `json:"activeConnections"`
}

func statusColor(status string) int {
	switch status {
	case "online":
		return discord.ColorGreen
	case "warning":
		return discord.ColorYellow
	case "error":
		return discord.ColorRed
	case "maintenance":
		return discord.ColorPurple
	}
	return discord.ColorBlue
}

// SystemStatusEmbed renders s, filling in defaults for empty fields
func SystemStatusEmbed(s SystemStatus, now time.Time) discord.Embed {
	if s.Status == "" {
		s.Status = "online"
	}
	if s.Message == "" {
		s.Message = "Hệ thống hoạt động bình thường"
	}
	color := s.Color
	if color == 0 {
		color = statusColor(s.Status)
	}
	e := newEmbed("🖥️ Trạng thái hệ thống", s.Message, color, now)
	if s.Uptime != "" {
		e.AddField("⏱️ Uptime", s.Uptime, true)
	}
	if s.DBStatus != "" {
		e.AddField("🗄️ Database", s.DBStatus, true)
	}
	if s.MemoryUsage != "" {
		e.AddField("💾 Memory", s.MemoryUsage, true)
	}
	if s.ActiveConnections > 0 {
		e.AddField("👥 Connections", fmt.Sprint(s.ActiveConnections), true)
	}
	return e
}

// TestEmbed is the message sent by the webhook self-test
func TestEmbed(loc *time.Location, now time.Time) discord.Embed {
	e := newEmbed("✅ Test Discord Webhook",
		"Đây là tin nhắn test từ hệ thống quản lý phòng trọ", discord.ColorLime, now)
	e.AddField("Thời gian", now.In(loc).Format(clockLayout), true)
	e.AddField("Trạng thái", "Hoạt động bình thường", true)
	return e
}

// Notifier sends rental notifications through a Discord client
type Notifier struct {
	client *discord.Client
	loc    *time.Location
}

// New creates a notifier rendering dates in loc
func New(client *discord.Client, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	return &Notifier{client: client, loc: loc}
}

// Client exposes the underlying webhook client
func (n *Notifier) Client() *discord.Client {
	return n.client
}

func (n *Notifier) send(ctx context.Context, kind string, e discord.Embed) error {
	err := n.client.Send(ctx, e)
	prometheus.RecordNotification(kind, err)
	if err != nil {
		logger.FromContext(ctx).Warn("Discord notification failed", zap.String("kind", kind), zap.Error(err))
		return err
	}
	logger.FromContext(ctx).Debug("Discord notification sent", zap.String("kind", kind))
	return nil
}

// Custom sends a caller-built embed, stamping time and default footer
func (n *Notifier) Custom(ctx context.Context, e discord.Embed) error {
	if e.Timestamp == "" {
		e.Timestamp = model.Now().UTC().Format(time.RFC3339)
	}
	if e.Footer == nil || e.Footer.Text == "" {
		icon := ""
		if e.Footer != nil {
			icon = e.Footer.IconURL
		}
		e.Footer = &discord.Footer{Text: "Quản lý phòng trọ", IconURL: icon}
	}
	if e.Color == 0 {
		e.Color = discord.ColorBlue
	}
	if e.Fields == nil {
		e.Fields = []discord.Field{}
	}
	return n.send(ctx, "custom", e)
}

// PaymentReminder sends the reminder for payments
func (n *Notifier) PaymentReminder(ctx context.Context, payments []model.Payment) error {
	return n.send(ctx, "payment_reminder", PaymentReminderEmbed(payments, n.loc, model.Now()))
}

// ContractExpiry sends the expiry warning for contracts
func (n *Notifier) ContractExpiry(ctx context.Context, contracts []model.Contract) error {
	return n.send(ctx, "contract_expiry", ContractExpiryEmbed(contracts, n.loc, model.Now()))
}

// SystemStatus sends a health report
func (n *Notifier) SystemStatus(ctx context.Context, s SystemStatus) error {
	return n.send(ctx, "system_status", SystemStatusEmbed(s, model.Now()))
}

// Test sends the self-test message
func (n *Notifier) Test(ctx context.Context) error {
	return n.send(ctx, "test", TestEmbed(n.loc, model.Now()))
}
