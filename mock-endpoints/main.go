// Command mock-endpoints is a local receiver for report-ready webhooks. It
// checks the signature and prints each notification.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync/atomic"
)

type receiver struct {
	secret   string
	received atomic.Int64
	rejected atomic.Int64
	out      io.Writer
}

type notification struct {
	RunID   string `json:"run_id"`
	Country string `json:"country"`
	Outcome string `json:"outcome"`
	Cohorts int    `json:"cohorts"`
}

func newReceiver(secret string, out io.Writer) *receiver {
	return &receiver{secret: secret, out: out}
}

func (rc *receiver) routes() http.Handler {
	mux := http.NewServeMux()

	// Verifies X-Webhook-Signature against the shared secret
	mux.HandleFunc("POST /webhook/reports", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "reading body", http.StatusBadRequest)
			return
		}

		if !rc.validSignature(body, r.Header.Get("X-Webhook-Signature")) {
			rc.rejected.Add(1)
			rc.logRequest(r, http.StatusUnauthorized, notification{})
			respond(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}

		var n notification
		if err := json.Unmarshal(body, &n); err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}

		rc.received.Add(1)
		rc.logRequest(r, http.StatusOK, n)
		respond(w, http.StatusOK, map[string]string{"status": "received"})
	})

	// Failing endpoint, always returns 500
	mux.HandleFunc("POST /webhook/fail", func(w http.ResponseWriter, r *http.Request) {
		rc.logRequest(r, http.StatusInternalServerError, notification{})
		respond(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]int64{
			"received": rc.received.Load(),
			"rejected": rc.rejected.Load(),
		})
	})

	return mux
}

func (rc *receiver) validSignature(body []byte, got string) bool {
	mac := hmac.New(sha256.New, []byte(rc.secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(got))
}

func (rc *receiver) logRequest(r *http.Request, status int, n notification) {
	fmt.Fprintf(rc.out, "%s %s -> %d | event=%s id=%s run=%s country=%s outcome=%s cohorts=%d\n",
		r.Method,
		r.URL.Path,
		status,
		r.Header.Get("X-Webhook-Event"),
		truncate(r.Header.Get("X-Webhook-ID"), 8),
		truncate(n.RunID, 8),
		n.Country,
		n.Outcome,
		n.Cohorts,
	)
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	rc := newReceiver(os.Getenv("NOTIFY_WEBHOOK_SECRET"), os.Stdout)

	log.Printf("Mock report receiver starting on :%s", port)
	log.Printf("  POST /webhook/reports  -> 200 OK when the signature matches")
	log.Printf("  POST /webhook/fail     -> 500 Error")
	log.Printf("  GET  /stats            -> received/rejected counts")

	if err := http.ListenAndServe(":"+port, rc.routes()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
