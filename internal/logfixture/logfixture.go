// Package logfixture generates synthetic server log entries for exercising
// a tail session by hand.
package logfixture

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000"

var defaultTemplates = []string{
	"INFO: User authentication successful for user_id: {user_id}",
	"INFO: Database connection established",
	"INFO: Processing request to /api/users/{user_id}",
	"INFO: Cache hit for key: session_{session_id}",
	"INFO: File uploaded successfully: {filename}",
	"WARNING: High memory usage detected: {memory}%",
	"WARNING: Slow query detected: {query_time}ms",
	"WARNING: Rate limit approaching for IP: {ip}",
	"ERROR: Database connection timeout",
	"ERROR: Failed to process payment for order: {order_id}",
	"ERROR: File not found: {filename}",
	"INFO: Server health check passed",
	"INFO: Backup completed successfully",
	"INFO: New user registration: {email}",
	"INFO: Session expired for user: {user_id}",
	"WARNING: Disk space low: {disk_space}GB remaining",
	"INFO: API request completed in {response_time}ms",
	"ERROR: Network timeout for external service",
	"INFO: Background job completed: data_cleanup",
	"WARNING: SSL certificate expires in {days} days",
}

// Generator fills message templates with random values.
type Generator struct {
	Templates []string

	// Placeholders maps a name to the function producing its value.
	// Every occurrence of "{name}" in a template is replaced by one value.
	Placeholders map[string]func() string

	rnd *rand.Rand
}

// New returns a Generator with the default templates and placeholders,
// drawing all random values from rnd.
func New(rnd *rand.Rand) *Generator {
	between := func(lo, hi int) int {
		return lo + rnd.Intn(hi-lo+1)
	}

	pick := func(choices ...string) string {
		return choices[rnd.Intn(len(choices))]
	}

	return &Generator{
		Templates: defaultTemplates,

		Placeholders: map[string]func() string{
			"user_id": func() string { return fmt.Sprint(between(1000, 9999)) },
			"session_id": func() string {
				const hex = "abcdef0123456789"

				var b strings.Builder

				for i := 0; i < 8; i++ {
					b.WriteByte(hex[rnd.Intn(len(hex))])
				}

				return b.String()
			},
			"filename":   func() string { return pick("upload.pdf", "image.jpg", "document.docx", "data.csv") },
			"memory":     func() string { return fmt.Sprint(between(70, 95)) },
			"query_time": func() string { return fmt.Sprint(between(500, 3000)) },
			"ip": func() string {
				return fmt.Sprintf("%d.%d.%d.%d", between(1, 255), between(1, 255), between(1, 255), between(1, 255))
			},
			"order_id":      func() string { return fmt.Sprintf("ORD%d", between(10000, 99999)) },
			"email":         func() string { return fmt.Sprintf("user%d@example.com", between(100, 999)) },
			"disk_space":    func() string { return fmt.Sprint(between(5, 50)) },
			"response_time": func() string { return fmt.Sprint(between(50, 500)) },
			"days":          func() string { return fmt.Sprint(between(7, 30)) },
		},

		rnd: rnd,
	}
}

// Fill substitutes the placeholders in tmpl.
func (g *Generator) Fill(tmpl string) string {
	for name, value := range g.Placeholders {
		key := "{" + name + "}"

		if strings.Contains(tmpl, key) {
			tmpl = strings.ReplaceAll(tmpl, key, value())
		}
	}

	return tmpl
}

// Entry returns a random log entry stamped with now.
func (g *Generator) Entry(now time.Time) string {
	tmpl := g.Templates[g.rnd.Intn(len(g.Templates))]

	return fmt.Sprintf("[%s] %s", now.Format(timeLayout), g.Fill(tmpl))
}

// Run passes a new entry to emit after a random delay in [minDelay, maxDelay)
// until ctx is done or emit fails.
func (g *Generator) Run(ctx context.Context, emit func(entry string) error, minDelay, maxDelay time.Duration) error {
	for {
		if err := emit(g.Entry(time.Now())); err != nil {
			return err
		}

		delay := minDelay

		if maxDelay > minDelay {
			delay += time.Duration(g.rnd.Int63n(int64(maxDelay - minDelay)))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}
