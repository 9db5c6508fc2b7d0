// Package main provides a standalone CLI tool for triggering an emergency
// alert against a running healthmate API server. It mints a short-lived
// access token for the given user and prints the per-contact report.
//
// Usage:
//
//	alert-client --user 7f1c7a3e-7a64-4c44-9d43-3f8b54a1f0a2 --message "Fell in the kitchen"
//	alert-client --url http://localhost:8080 --name "Sam" --location "51.5072,-0.1276"
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sungwon/healthmate/internal/auth"
	"github.com/sungwon/healthmate/internal/config"
)

type options struct {
	url        string
	signingKey string
	issuer     string
	audience   string
	user       string
	name       string
	message    string
	location   string
	timeout    time.Duration
}

type alertReport struct {
	Success       bool   `json:"success"`
	TotalContacts int    `json:"totalContacts"`
	SuccessCount  int    `json:"successCount"`
	Error         string `json:"error"`
	Results       []struct {
		Contact   string `json:"contact"`
		Email     string `json:"email"`
		Success   bool   `json:"success"`
		Detail    string `json:"detail"`
		MessageID string `json:"messageId"`
		Attempts  int    `json:"attempts"`
	} `json:"results"`
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	if opts.signingKey == "" {
		fmt.Fprintf(os.Stderr, "error: --signing-key or %s_AUTH_JWT_SIGNING_KEY is required\n", config.EnvPrefix)
		os.Exit(2)
	}
	userID, err := uuid.Parse(opts.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: --user must be a UUID: %v\n", err)
		os.Exit(2)
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey:        opts.signingKey,
		AccessTokenExpiry: 5 * time.Minute,
		Issuer:            opts.issuer,
		Audience:          opts.audience,
	})
	token, err := jwtService.GenerateAccessToken(userID, opts.name, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: mint token: %v\n", err)
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]string{
		"message":  opts.message,
		"location": opts.location,
		"userName": opts.name,
	})
	req, err := http.NewRequest(http.MethodPost, opts.url+"/api/v1/emergency-alerts", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	fmt.Printf("Emergency Alert Client\n")
	fmt.Printf("  Server:   %s\n", opts.url)
	fmt.Printf("  User:     %s\n", userID)
	fmt.Println()

	start := time.Now()
	resp, err := (&http.Client{Timeout: opts.timeout}).Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var report alertReport
	if err := json.Unmarshal(raw, &report); err != nil {
		fmt.Fprintf(os.Stderr, "error: status %d, undecodable body: %s\n", resp.StatusCode, raw)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			fmt.Fprintf(os.Stderr, "error: %s (retry after %ss)\n", report.Error, ra)
		} else {
			fmt.Fprintf(os.Stderr, "error: status %d: %s\n", resp.StatusCode, report.Error)
		}
		os.Exit(1)
	}

	for i, r := range report.Results {
		status := "OK  "
		if !r.Success {
			status = "FAIL"
		}
		fmt.Printf("  [%d/%d] %s %s <%s> attempts=%d %s%s\n",
			i+1, report.TotalContacts, status, r.Contact, r.Email, r.Attempts, r.MessageID, r.Detail)
	}
	fmt.Println()
	fmt.Printf("Results: %d of %d contacts notified in %s\n",
		report.SuccessCount, report.TotalContacts, time.Since(start).Round(time.Millisecond))

	if report.SuccessCount < report.TotalContacts {
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.url, "url", "http://localhost:8080", "API server base URL")
	flag.StringVar(&opts.signingKey, "signing-key", os.Getenv(config.EnvPrefix+"_AUTH_JWT_SIGNING_KEY"), "JWT signing key shared with the server")
	flag.StringVar(&opts.issuer, "issuer", os.Getenv(config.EnvPrefix+"_AUTH_JWT_ISSUER"), "JWT issuer")
	flag.StringVar(&opts.audience, "audience", os.Getenv(config.EnvPrefix+"_AUTH_JWT_AUDIENCE"), "JWT audience")
	flag.StringVar(&opts.user, "user", "", "User UUID whose contacts are alerted")
	flag.StringVar(&opts.name, "name", "", "Sender display name")
	flag.StringVar(&opts.message, "message", "", "Alert message")
	flag.StringVar(&opts.location, "location", "", "Location text or coordinates")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Request timeout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: alert-client [options]\n\n")
		fmt.Fprintf(os.Stderr, "Triggers an emergency alert for a user and prints the delivery report.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return opts
}
