package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/AudereSemper/kokoru-garden-api/internal/infra/config"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

type jwksDocument struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		Alg string `json:"alg"`
		Use string `json:"use"`
	} `json:"keys"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.OAuth.GoogleClientID == "" {
		log.Fatal("KOKORU_OAUTH_GOOGLE_CLIENT_ID is not set")
	}
	if cfg.OAuth.GoogleClientSecret == "" {
		log.Fatal("KOKORU_OAUTH_GOOGLE_CLIENT_SECRET is not set")
	}
	if cfg.OAuth.GoogleRedirectURL == "" {
		log.Fatal("KOKORU_OAUTH_GOOGLE_REDIRECT_URL is not set")
	}
	fmt.Printf("Client ID:    %s\n", cfg.OAuth.GoogleClientID)
	fmt.Printf("Redirect URL: %s\n", cfg.OAuth.GoogleRedirectURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Printf("Fetching %s...\n", googleJWKSURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleJWKSURL, nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("fetch JWKS: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("unexpected status: %s", resp.Status)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		log.Fatalf("decode JWKS: %v", err)
	}
	if len(doc.Keys) == 0 {
		log.Fatal("JWKS document contains no keys")
	}

	fmt.Printf("Got %d signing keys:\n", len(doc.Keys))
	for _, key := range doc.Keys {
		fmt.Printf("  kid=%s kty=%s alg=%s use=%s\n", key.Kid, key.Kty, key.Alg, key.Use)
	}
	fmt.Println("OAuth configuration looks usable.")
}
