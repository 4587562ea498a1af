// Package auth implements the account commands: register, login, and
// the prompts and session bookkeeping they share.
package auth

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Account and session commands",
	Long:  "Create an account and sign in. The session token is stored for the other commands.",
}

// stdin is shared between prompts so buffered input is not lost
// between reads.
var stdin = bufio.NewReader(os.Stdin)

// readLine prompts and reads one trimmed line.
func readLine(label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

// readSecret prompts without echo. When stdin is not a terminal, for
// scripted use, it falls back to a plain line read.
func readSecret(label string) string {
	fmt.Print(label)
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

// postJSON sends one API request and decodes the response envelope.
func postJSON(path string, body map[string]string) (map[string]interface{}, error) {
	payload, _ := json.Marshal(body)
	serverURL := fmt.Sprintf("http://%s:%d/api/v1%s",
		viper.GetString("server.host"),
		viper.GetInt("server.http_port"),
		path)

	resp, err := http.Post(serverURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
	}
	return result, nil
}

// envelopeError turns a failed envelope into an error, preferring the
// server's message.
func envelopeError(result map[string]interface{}, fallback string) error {
	if msg, ok := result["error"].(string); ok && msg != "" {
		return errors.New(msg)
	}
	return errors.New(fallback)
}
