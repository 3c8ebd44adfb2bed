// seed drives a running notifyd server through the demo scenario: it binds the
// demo user's trusted device, sets a simulated context, and dispatches a few
// events so the record list has data. Point it at the server with NOTIFYD_URL
// (default http://localhost:8080).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const (
	demoUserID      = "demo_user"
	trustedDeviceID = "device_888"
	unknownDeviceID = "device_999"
)

func main() {
	baseURL := os.Getenv("NOTIFYD_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 10 * time.Second}

	if err := waitForHealthy(client, baseURL); err != nil {
		log.Fatalf("seed: %v", err)
	}

	// Trust the demo device so the trusted-login path has data.
	post(client, baseURL+"/v1/devices/bind", map[string]string{
		"user_id":   demoUserID,
		"device_id": trustedDeviceID,
	})

	// Simulated context: app installed and reachable, not in the foreground.
	patch(client, baseURL+"/v1/users/"+demoUserID+"/context", map[string]bool{
		"has_app":         true,
		"is_active":       false,
		"device_online":   true,
		"whatsapp_opt_in": true,
	})

	post(client, baseURL+"/v1/login-attempts", map[string]string{
		"user_id":   demoUserID,
		"device_id": trustedDeviceID,
	})
	post(client, baseURL+"/v1/login-attempts", map[string]string{
		"user_id":   demoUserID,
		"device_id": unknownDeviceID,
	})
	post(client, baseURL+"/v1/notifications/dispatch", map[string]string{
		"user_id":    demoUserID,
		"event_type": "TRANSACTION_ALERT",
	})

	log.Println("Seed completed successfully.")
	fmt.Printf("Trusted device: %s / %s\n", demoUserID, trustedDeviceID)
	fmt.Printf("Records: GET %s/v1/notifications/recent\n", baseURL)
}

func waitForHealthy(client *http.Client, baseURL string) error {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy", baseURL)
}

func post(client *http.Client, url string, body any) {
	do(client, http.MethodPost, url, body)
}

func patch(client *http.Client, url string, body any) {
	do(client, http.MethodPatch, url, body)
}

func do(client *http.Client, method, url string, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("seed: marshal: %v", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(raw))
	if err != nil {
		log.Fatalf("seed: request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("seed: %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.Fatalf("seed: %s %s: status %d: %s", method, url, resp.StatusCode, out)
	}
	log.Printf("%s %s -> %d %s", method, url, resp.StatusCode, bytes.TrimSpace(out))
}
