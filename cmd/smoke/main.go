// Command smoke drives one learner journey against a running API:
// login, create and publish a course, register and enroll a student,
// complete the course, read the admin dashboard and export the day's audit log.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"
)

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type client struct {
	http *resty.Client
}

// call sends one request and decodes the envelope's data into out.
func (c *client) call(method, path, token string, body, out any, want int) error {
	req := c.http.R().SetResult(&envelope{}).SetError(&envelope{})
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode() != want {
		msg := strings.TrimSpace(resp.String())
		if e, ok := resp.Error().(*envelope); ok && e.Message != "" {
			msg = e.Message + " (request " + e.RequestID + ")"
		}
		return fmt.Errorf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode(), want, msg)
	}
	env, _ := resp.Result().(*envelope)
	if out != nil && env != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

func (c *client) login(email, password string) (string, error) {
	var session struct {
		Token string `json:"token"`
	}
	err := c.call("POST", "/api/auth/login", "", map[string]string{"email": email, "password": password}, &session, 200)
	return session.Token, err
}

func main() {
	log.SetFlags(0)
	var (
		base     = flag.String("base", envOr("SMOKE_BASE_URL", "http://localhost:8080"), "API base URL")
		email    = flag.String("email", envOr("SMOKE_ADMIN_EMAIL", "admin@skillarc.local"), "admin email")
		password = flag.String("password", os.Getenv("SMOKE_ADMIN_PASSWORD"), "admin password")
		timeout  = flag.Duration("timeout", 10*time.Second, "per-request timeout")
	)
	flag.Parse()
	if *password == "" {
		log.Fatal("missing admin password: provide via -password or SMOKE_ADMIN_PASSWORD")
	}

	c := &client{http: resty.New().
		SetBaseURL(strings.TrimRight(*base, "/")).
		SetTimeout(*timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)}

	if err := run(c, *email, *password); err != nil {
		log.Fatalf("smoke failed: %v", err)
	}
	log.Println("smoke OK")
}

func run(c *client, adminEmail, adminPassword string) error {
	if err := c.call("GET", "/api/info", "", nil, nil, 200); err != nil {
		return err
	}

	admin, err := c.login(adminEmail, adminPassword)
	if err != nil {
		return err
	}
	log.Println("admin logged in")

	suffix := strings.ToLower(ulid.Make().String())
	var course struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.call("POST", "/api/courses", admin, map[string]any{
		"title":    "Smoke course " + suffix,
		"category": "smoke",
		"level":    "beginner",
	}, &course, 201); err != nil {
		return err
	}
	if err := c.call("PUT", "/api/courses/"+course.ID, admin, map[string]string{"status": "published"}, &course, 200); err != nil {
		return err
	}
	log.Printf("course %s %s", course.ID, course.Status)

	studentEmail := "smoke-" + suffix + "@skillarc.local"
	studentPassword := "smoke-" + suffix
	if err := c.call("POST", "/api/auth/register", "", map[string]string{
		"email":     studentEmail,
		"password":  studentPassword,
		"full_name": "Smoke Student",
	}, nil, 201); err != nil {
		return err
	}
	student, err := c.login(studentEmail, studentPassword)
	if err != nil {
		return err
	}

	var enrollment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.call("POST", "/api/enrollments", student, map[string]string{"course_id": course.ID}, &enrollment, 201); err != nil {
		return err
	}
	for _, pct := range []int{40, 100} {
		if err := c.call("PUT", "/api/enrollments/"+enrollment.ID+"/progress", student, map[string]int{"progress_percent": pct}, &enrollment, 200); err != nil {
			return err
		}
	}
	if enrollment.Status != "completed" {
		return fmt.Errorf("enrollment %s is %q after 100%% progress", enrollment.ID, enrollment.Status)
	}
	log.Printf("enrollment %s completed", enrollment.ID)

	var certs []struct {
		Serial string `json:"serial"`
	}
	if err := c.call("GET", "/api/certificates", student, nil, &certs, 200); err != nil {
		return err
	}
	if len(certs) == 0 {
		return fmt.Errorf("no certificate issued for enrollment %s", enrollment.ID)
	}

	var dashboard map[string]any
	if err := c.call("GET", "/api/analytics/dashboard", admin, nil, &dashboard, 200); err != nil {
		return err
	}
	log.Printf("dashboard: %d keys", len(dashboard))

	var export struct {
		CSV      string `json:"csv"`
		Filename string `json:"filename"`
		Total    int    `json:"total"`
	}
	day := time.Now().UTC().Format("2006-01-02")
	if err := c.call("GET", "/api/audit-logs/export?format=csv&action=UPDATE&start_date="+day+"&end_date="+day, admin, nil, &export, 200); err != nil {
		return err
	}
	if export.Total == 0 || strings.Count(export.CSV, "\n") != export.Total+1 {
		return fmt.Errorf("audit export %s: %d rows for total %d", export.Filename, strings.Count(export.CSV, "\n")-1, export.Total)
	}
	log.Printf("audit export %s: %d rows", export.Filename, export.Total)
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
