package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"liquidityStaker/internal/model"
)

// Sink presents notifications to the user.
type Sink interface {
	Notify(n model.Notification)
}

// Console writes one line per notification and mirrors it to the log.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

// NewConsole builds a console sink writing to out.
func NewConsole(out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{out: out, logger: logger}
}

func (c *Console) Notify(n model.Notification) {
	var line string
	switch v := n.(type) {
	case model.TxPending:
		line = fmt.Sprintf("[tx] %s %s", v.Description, shortHash(v.Hash))
		if v.ExplorerURL != "" {
			line += " " + v.ExplorerURL
		}
		c.logger.Info("transaction pending", zap.String("id", v.ID), zap.String("tx_hash", v.Hash))
	case model.TxSuccess:
		line = fmt.Sprintf("[ok] %s: %s", v.Title, v.Message)
		c.logger.Info("transaction confirmed", zap.String("id", v.ID), zap.String("tx_hash", v.Hash))
	case model.TxError:
		line = fmt.Sprintf("[error] %s", v.Message)
		c.logger.Warn("transaction failed", zap.String("id", v.ID), zap.String("message", v.Message))
	default:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out != nil {
		fmt.Fprintln(c.out, line)
	}
}

func shortHash(hash string) string {
	if len(hash) <= 20 {
		return hash
	}
	return hash[:20] + "..."
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(n model.Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}
