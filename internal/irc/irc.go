// Package irc connects the bot to an IRC network and converts protocol
// traffic into plain chat events for the main loop.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/irc.v4"
)

// Event is one inbound chat line. Target is the channel (or the sender's
// nick for a direct message), already the right place to reply to.
type Event struct {
	Target    string
	Sender    string
	Text      string
	Addressed bool
	Direct    bool
}

// Conn is the bot's IRC connection. Inbound lines arrive on Events();
// Say sends. Say is safe to call from any goroutine.
type Conn struct {
	nick     string
	channels []string
	rejoin   bool
	logger   *slog.Logger

	client  *irc.Client
	events  chan Event
	limiter *rate.Limiter
}

// Config configures a Conn.
type Config struct {
	// ServerURL is irc://host:port or ircs://host:port for TLS.
	ServerURL string
	Nick      string
	Password  string
	Channels  []string
	// Rejoin re-enters a channel after being kicked.
	Rejoin bool
	Logger *slog.Logger
}

// Dial connects and registers. Run must be called to start processing.
func Dial(cfg Config) (*Conn, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}

	var netConn net.Conn
	switch u.Scheme {
	case "irc", "":
		addr := hostPort(u, "6667")
		netConn, err = net.DialTimeout("tcp", addr, 30*time.Second)
	case "ircs":
		addr := hostPort(u, "6697")
		netConn, err = tls.Dial("tcp", addr, nil)
	default:
		return nil, fmt.Errorf("unsupported IRC scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.ServerURL, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Conn{
		nick:     cfg.Nick,
		channels: cfg.Channels,
		rejoin:   cfg.Rejoin,
		logger:   logger,
		events:   make(chan Event, 64),
		// Four quick lines, then roughly one per second. IRC servers
		// disconnect clients that flood.
		limiter: rate.NewLimiter(rate.Every(time.Second), 4),
	}

	c.client = irc.NewClient(netConn, irc.ClientConfig{
		Nick:    cfg.Nick,
		Pass:    cfg.Password,
		User:    cfg.Nick,
		Name:    cfg.Nick,
		Handler: irc.HandlerFunc(c.handle),
	})
	return c, nil
}

func hostPort(u *url.URL, defaultPort string) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), defaultPort)
}

// Events returns the inbound chat event channel. It is closed when the
// connection ends.
func (c *Conn) Events() <-chan Event { return c.events }

// Run processes the connection until ctx is done or the server hangs up.
func (c *Conn) Run(ctx context.Context) error {
	defer close(c.events)
	return c.client.RunContext(ctx)
}

func (c *Conn) handle(client *irc.Client, m *irc.Message) {
	switch m.Command {
	case "001":
		for _, ch := range c.channels {
			c.logger.Info("joining channel", "channel", ch)
			_ = client.WriteMessage(&irc.Message{Command: "JOIN", Params: []string{ch}})
		}
	case "KICK":
		if c.rejoin && len(m.Params) >= 2 && m.Params[1] == client.CurrentNick() {
			c.logger.Info("kicked, rejoining", "channel", m.Params[0])
			_ = client.WriteMessage(&irc.Message{Command: "JOIN", Params: []string{m.Params[0]}})
		}
	case "PRIVMSG":
		c.handlePrivmsg(client, m)
	}
}

func (c *Conn) handlePrivmsg(client *irc.Client, m *irc.Message) {
	if len(m.Params) < 2 {
		return
	}
	sender := m.Prefix.Name
	if sender == "" || sender == client.CurrentNick() {
		return
	}
	text := m.Trailing()
	if strings.HasPrefix(text, "\x01") { // CTCP
		return
	}

	ev := Event{Sender: sender, Text: text}
	if m.Params[0] == client.CurrentNick() {
		ev.Target = sender
		ev.Direct = true
		ev.Addressed = true
		// A DM may still carry the bot's nick prefix; strip it.
		ev.Text, _ = StripAddress(c.nick, text)
	} else {
		ev.Target = m.Params[0]
		ev.Text, ev.Addressed = StripAddress(c.nick, text)
	}

	select {
	case c.events <- ev:
	default:
		c.logger.Warn("dropping chat line, event queue full", "target", ev.Target)
	}
}

// Say sends text to target, one IRC message per line. Multi-line output
// is never merged; each line is its own notification.
func (c *Conn) Say(ctx context.Context, target, text string) {
	for _, line := range SplitLines(text) {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		if err := c.client.WriteMessage(&irc.Message{Command: "PRIVMSG", Params: []string{target, line}}); err != nil {
			c.logger.Error("sending line failed", "target", target, "error", err)
			return
		}
	}
}

// Part leaves a channel with an optional goodbye.
func (c *Conn) Part(channel, message string) {
	params := []string{channel}
	if message != "" {
		params = append(params, message)
	}
	_ = c.client.WriteMessage(&irc.Message{Command: "PART", Params: params})
}

// StripAddress checks whether text addresses nick directly ("nick: ..."
// or "nick, ...") and returns the text with the prefix removed.
func StripAddress(nick, text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	prefix := strings.ToLower(nick)
	if !strings.HasPrefix(lower, prefix) {
		return text, false
	}
	rest := trimmed[len(nick):]
	if rest == "" {
		return "", true
	}
	if rest[0] != ':' && rest[0] != ',' {
		return text, false
	}
	return strings.TrimSpace(rest[1:]), true
}

// SplitLines breaks text on newlines, dropping empty lines.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
