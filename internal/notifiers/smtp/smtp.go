package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"stream-quality/internal/core/notify"
	"stream-quality/internal/notifiers/format"
)

const defaultPort = 587

type Notifier struct {
	NameValue     string
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	To            []string
	Subject       string
	Timeout       time.Duration
	ImplicitTLS   bool
	SkipVerifyTLS bool
}

func (n *Notifier) Name() string {
	return n.NameValue
}

func (n *Notifier) Send(ctx context.Context, alert notify.Alert) error {
	if n.Host == "" {
		return fmt.Errorf("smtp host is required")
	}
	if n.From == "" {
		return fmt.Errorf("smtp from is required")
	}
	if len(n.To) == 0 {
		return fmt.Errorf("smtp to is required")
	}
	port := n.Port
	if port == 0 {
		port = defaultPort
	}

	subject := n.Subject
	if subject == "" {
		subject = alert.Title()
	}
	body, err := Render(alert)
	if err != nil {
		return err
	}

	msg := buildMessage(n.From, n.To, mime.QEncoding.Encode("utf-8", subject), body)
	addr := net.JoinHostPort(n.Host, fmt.Sprint(port))

	client, err := n.dialSMTP(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if n.Username != "" {
		auth := smtp.PlainAuth("", n.Username, n.Password, n.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(n.From); err != nil {
		return err
	}
	for _, to := range n.To {
		if err := client.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (n *Notifier) dialSMTP(ctx context.Context, addr string) (*smtp.Client, error) {
	timeout := n.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	tlsConfig := &tls.Config{
		ServerName:         n.Host,
		InsecureSkipVerify: n.SkipVerifyTLS,
	}

	if n.ImplicitTLS {
		dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: timeout}, Config: tlsConfig}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return newClient(ctx, conn, n.Host)
	}

	conn, err := (&net.Dialer{Timeout: timeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	client, err := newClient(ctx, conn, n.Host)
	if err != nil {
		return nil, err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

// newClient ties the connection deadline to ctx so a stalled server cannot
// outlive the caller.
func newClient(ctx context.Context, conn net.Conn, host string) (*smtp.Client, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}

func buildMessage(from string, to []string, subject string, body string) string {
	headers := []string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}

var page = template.Must(template.New("alert").Parse(`<html>
<body>
<h2>{{.Heading}}</h2>
<p>{{.Heading}} triggered at {{.At}}.</p>
{{- if .Summary}}
<h3>Summary</h3>
<ul>
{{- range .Summary}}
<li>{{.}}</li>
{{- end}}
</ul>
<h3>Failed Checks</h3>
<table border="1">
<tr><th>Name</th><th>Description</th><th>Message</th></tr>
{{- range .Failures}}
<tr><td>{{.Name}}</td><td>{{.Description}}</td><td>{{.Message}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Anomalies}}
<h3>Anomalies</h3>
<table border="1">
<tr><th>Metric</th><th>Timestamp</th><th>Value</th><th>Expected</th><th>Deviation</th><th>Z-Score</th><th>Severity</th></tr>
{{- range .Anomalies}}
<tr><td>{{.Metric}}</td><td>{{.At}}</td><td>{{.Value}}</td><td>{{.Expected}}</td><td>{{.Deviation}}</td><td>{{.ZScore}}</td><td>{{.Severity}}</td></tr>
{{- end}}
</table>
{{- end}}
<p>Please investigate and resolve these issues.</p>
</body>
</html>
`))

type failureRow struct {
	Name        string
	Description string
	Message     string
}

type anomalyRow struct {
	Metric    string
	At        string
	Value     string
	Expected  string
	Deviation string
	ZScore    string
	Severity  string
}

type view struct {
	Heading   string
	At        string
	Summary   []string
	Failures  []failureRow
	Anomalies []anomalyRow
}

// Render builds the HTML body. Quality alerts list every failed check.
func Render(alert notify.Alert) (string, error) {
	v := view{
		Heading: "Data Quality Alert",
		At:      alert.OccurredAt.Format(time.RFC3339),
		Summary: format.SummaryLines(alert),
	}
	for _, o := range alert.Failures {
		v.Failures = append(v.Failures, failureRow{
			Name:        format.OrNA(o.Name),
			Description: format.OrNA(o.Description),
			Message:     format.OrNA(o.Text()),
		})
	}
	if alert.Kind == notify.KindAnomaly {
		v.Heading = "Metric Anomaly Alert"
		for _, r := range alert.Anomalies {
			v.Anomalies = append(v.Anomalies, anomalyRow{
				Metric:    r.MetricName,
				At:        r.Timestamp.Format(time.RFC3339),
				Value:     fmt.Sprintf("%.2f", r.Value),
				Expected:  fmt.Sprintf("%.2f", r.ExpectedValue),
				Deviation: fmt.Sprintf("%.2f%%", r.DeviationPercentage),
				ZScore:    fmt.Sprintf("%.2f", r.ZScore),
				Severity:  string(r.Severity),
			})
		}
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
