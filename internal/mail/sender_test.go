package mail

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSMTP is a minimal plaintext SMTP server that records one envelope per session.
type fakeSMTP struct {
	ln         net.Listener
	rejectRcpt bool

	mu   sync.Mutex
	from string
	rcpt string
	data string
	wg   sync.WaitGroup
}

func startFakeSMTP(t *testing.T, rejectRcpt bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeSMTP{ln: ln, rejectRcpt: rejectRcpt}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeSMTP) port(t *testing.T) int {
	_, p, err := net.SplitHostPort(f.ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return port
}

func (f *fakeSMTP) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")

	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 localhost")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			f.mu.Lock()
			f.from = line
			f.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			if f.rejectRcpt {
				_ = tp.PrintfLine("550 no such user")
				continue
			}
			f.mu.Lock()
			f.rcpt = line
			f.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 end with <CR><LF>.<CR><LF>")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.data = strings.Join(lines, "\n")
			f.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func (f *fakeSMTP) snapshot() (from, rcpt, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.from, f.rcpt, f.data
}

func TestNewSMTPSender_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "enabled without smtp host",
			config:  Config{Enabled: true, FromAddress: "alerts@example.com"},
			wantErr: "SMTP host is required",
		},
		{
			name:    "enabled without from address",
			config:  Config{Enabled: true, SMTPHost: "smtp.example.com"},
			wantErr: "from address is required",
		},
		{
			name:   "disabled skips validation",
			config: Config{},
		},
		{
			name:   "valid config",
			config: Config{Enabled: true, SMTPHost: "smtp.example.com", FromAddress: "alerts@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSMTPSender(tt.config, discardLogger())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, sender)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, sender)
		})
	}
}

func TestNewSMTPSender_Defaults(t *testing.T) {
	sender, err := NewSMTPSender(Config{
		Enabled:      true,
		SMTPHost:     "smtp.example.com",
		FromAddress:  "alerts@example.com",
		SMTPUser:     "user",
		SMTPPassword: "pass",
	}, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 587, sender.config.SMTPPort)
	assert.NotZero(t, sender.config.DialTimeout)
	assert.NotNil(t, sender.auth)
}

func TestSMTPSender_DisabledSendsNothing(t *testing.T) {
	sender, err := NewSMTPSender(Config{}, discardLogger())
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: "a@x.com", Subject: "s", Body: "b"})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NotErrorIs(t, err, ErrDispatch)
}

func TestSMTPSender_Send(t *testing.T) {
	srv := startFakeSMTP(t, false)
	sender, err := NewSMTPSender(Config{
		Enabled:     true,
		SMTPHost:    "127.0.0.1",
		SMTPPort:    srv.port(t),
		FromAddress: "Weather Alerts <alerts@example.com>",
	}, discardLogger())
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{
		To:      "a@x.com",
		Subject: "Weather Notification Alert",
		Body:    "Hello,\n\nRain expected.",
	})
	require.NoError(t, err)

	from, rcpt, data := srv.snapshot()
	assert.Contains(t, from, "<alerts@example.com>")
	assert.Contains(t, rcpt, "<a@x.com>")
	assert.Contains(t, data, "Subject: Weather Notification Alert")
	assert.Contains(t, data, "To: a@x.com")
	assert.Contains(t, data, "Rain expected.")
}

func TestSMTPSender_Failures(t *testing.T) {
	t.Run("recipient rejected", func(t *testing.T) {
		srv := startFakeSMTP(t, true)
		sender, err := NewSMTPSender(Config{
			Enabled:     true,
			SMTPHost:    "127.0.0.1",
			SMTPPort:    srv.port(t),
			FromAddress: "alerts@example.com",
		}, discardLogger())
		require.NoError(t, err)

		err = sender.Send(context.Background(), Message{To: "ghost@x.com", Subject: "s", Body: "b"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDispatch)
		assert.Contains(t, err.Error(), "550")
	})

	t.Run("server unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())

		sender, err := NewSMTPSender(Config{
			Enabled:     true,
			SMTPHost:    "127.0.0.1",
			SMTPPort:    port,
			FromAddress: "alerts@example.com",
		}, discardLogger())
		require.NoError(t, err)

		err = sender.Send(context.Background(), Message{To: "a@x.com", Subject: "s", Body: "b"})
		assert.ErrorIs(t, err, ErrDispatch)
	})

	t.Run("empty recipient", func(t *testing.T) {
		sender, err := NewSMTPSender(Config{
			Enabled:     true,
			SMTPHost:    "127.0.0.1",
			FromAddress: "alerts@example.com",
		}, discardLogger())
		require.NoError(t, err)

		assert.ErrorIs(t, sender.Send(context.Background(), Message{}), ErrDispatch)
	})
}

func TestBuildMessage(t *testing.T) {
	sender, err := NewSMTPSender(Config{FromAddress: "alerts@example.com"}, discardLogger())
	require.NoError(t, err)

	got := string(sender.buildMessage(Message{To: "a@x.com", Subject: "Hi", Body: "line1\nline2"}))

	assert.True(t, strings.HasPrefix(got, "From: alerts@example.com\r\nTo: a@x.com\r\nSubject: Hi\r\n"))
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nline1\r\nline2"))
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "user@example.com", expected: "user@example.com"},
		{input: "Weather Alerts <alerts@example.com>", expected: "alerts@example.com"},
		{input: "<user@example.com>", expected: "user@example.com"},
		{input: "invalid<", expected: "invalid<"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractEmail(tt.input))
		})
	}
}
