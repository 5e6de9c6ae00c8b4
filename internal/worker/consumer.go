package worker

import (
	"context"
	"fmt"
	"log"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/lapstuen/badminton-signup-sub001/internal/events"
	"github.com/lapstuen/badminton-signup-sub001/internal/notifier"
)

type Config struct {
	RabbitURL   string
	Exchanges   []string
	Queue       string
	Bindings    []string
	Prefetch    int
	UseDLX      bool
	DLXName     string
	DLXQueue    string
	ServiceName string
}

type Consumer struct {
	cfg      Config
	notifier notifier.Notifier

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg Config, n notifier.Notifier) *Consumer {
	return &Consumer{cfg: cfg, notifier: n}
}

func (c *Consumer) RabbitURL() string {
	if v := os.Getenv("RABBIT_URL"); v != "" {
		return v
	}
	return c.cfg.RabbitURL
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.RabbitURL())
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}

	exchanges := c.cfg.Exchanges
	if len(exchanges) == 0 {
		exchanges = []string{"session.exchange"}
	}

	args := amqp.Table{}
	if c.cfg.UseDLX {
		args["x-dead-letter-exchange"] = c.cfg.DLXName
	}

	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue failed: %w", err)
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare exchange %s failed: %w", ex, err)
		}
		for _, key := range c.cfg.Bindings {
			if err := ch.QueueBind(q.Name, key, ex, false, nil); err != nil {
				_ = ch.Close()
				_ = conn.Close()
				return fmt.Errorf("bind queue to exchange=%s key=%s failed: %w", ex, key, err)
			}
		}
	}

	if c.cfg.UseDLX {
		if err := ch.ExchangeDeclare(c.cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlx failed: %w", err)
		}
		if _, err := ch.QueueDeclare(c.cfg.DLXQueue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlq failed: %w", err)
		}
		if err := ch.QueueBind(c.cfg.DLXQueue, "#", c.cfg.DLXName, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("bind dlq failed: %w", err)
		}
	}

	if c.cfg.Prefetch <= 0 {
		c.cfg.Prefetch = 8
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos failed: %w", err)
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ServiceName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.handleDelivery(d); err != nil {
				log.Printf("[notify] handle error key=%s err=%v -> Nack&requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleDelivery formats one message per event; the core already decided
// which event fires, so there is no filtering here.
func (c *Consumer) handleDelivery(d amqp.Delivery) error {
	key := d.RoutingKey
	body := d.Body

	switch key {
	case events.RKSessionPublished:
		ev, err := events.MustUnmarshal[events.SessionPublished](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("🏸 เปิดก๊วนแล้ว / Session published",
			fmt.Sprintf("%s · %d บาท/คน · ตอนนี้ %s",
				notifier.SessionLine(ev.Day, ev.Time, ev.Date), ev.Price, ev.Occupancy))

	case events.RKSlotAvailable:
		ev, err := events.MustUnmarshal[events.SlotAvailable](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("🔔 มีที่ว่าง / Slot available",
			fmt.Sprintf("%s ยกเลิก · เหลือ %s · %s · รีบจองเลย! / A spot just opened, first come first served.",
				ev.CancelledBy, ev.Occupancy, notifier.SessionLine(ev.Day, ev.Time, ev.Date)))

	case events.RKSlotAutoFilled:
		ev, err := events.MustUnmarshal[events.SlotAutoFilled](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("↕️ เลื่อนคิวแล้ว / Waitlist promoted",
			fmt.Sprintf("%s ได้เข้าเล่นแล้ว (จากคิวรอ) · ตอนนี้ %s", ev.PromotedName, ev.Occupancy))

	case events.RKRegistrationCancelled:
		ev, err := events.MustUnmarshal[events.RegistrationCancelled](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("❌ ยกเลิก / Cancelled",
			fmt.Sprintf("%s ยกเลิกแล้ว · ตอนนี้ %s · %s",
				ev.Name, ev.Occupancy, notifier.SessionLine(ev.Day, ev.Time, ev.Date)))

	case events.RKWalletTopUp:
		ev, err := events.MustUnmarshal[events.WalletTopUp](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("💰 เติมเงินสำเร็จ / Top-up received",
			fmt.Sprintf("user=%s +%d บาท (คงเหลือ %d)", ev.UserID, ev.Amount, ev.BalanceAfter))

	default:
		log.Printf("[notify] skip unknown key=%s", key)
	}
	return nil
}
