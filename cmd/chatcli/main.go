package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Interactive terminal client for the loan prequalification API.
// Commands:
//
//	/upload <path> <category>  upload a document to the session
//	/types                     list supported document categories
//	/quit                      exit

var (
	agentColor  = color.New(color.FgCyan)
	userColor   = color.New(color.FgGreen, color.Bold)
	errorColor  = color.New(color.FgRed)
	systemColor = color.New(color.FgYellow)
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	Id string `json:"id"`
}

type messageData struct {
	ReplyText string `json:"reply_text"`
	Phase     string `json:"phase"`
}

type uploadData struct {
	Category        string                     `json:"category"`
	ExtractedFields map[string]json.RawMessage `json:"extracted_fields"`
}

type client struct {
	baseURL string
	http    *http.Client
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "API base URL")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}

	sessionID, err := c.createSession()
	if err != nil {
		errorColor.Printf("Failed to create session: %v\n", err)
		os.Exit(1)
	}
	systemColor.Printf("Session %s started. Type /quit to exit.\n\n", sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		userColor.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/types":
			c.printTypes()
		case strings.HasPrefix(line, "/upload "):
			c.upload(sessionID, strings.TrimPrefix(line, "/upload "))
		default:
			c.send(sessionID, line)
		}
	}
}

func (c *client) createSession() (string, error) {
	resp, err := c.http.Post(c.baseURL+"/api/chat/v1/session", "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", err
	}
	if !env.Success {
		return "", fmt.Errorf("%s", env.Message)
	}

	var data sessionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", err
	}
	return data.Id, nil
}

func (c *client) send(sessionID, text string) {
	payload, _ := json.Marshal(map[string]string{
		"session_id": sessionID,
		"text":       text,
	})
	resp, err := c.http.Post(c.baseURL+"/api/chat/v1/message", "application/json", bytes.NewReader(payload))
	if err != nil {
		errorColor.Printf("request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		errorColor.Printf("bad response: %v\n", err)
		return
	}
	if !env.Success {
		errorColor.Printf("error: %s\n", env.Message)
		return
	}

	var data messageData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		errorColor.Printf("bad response: %v\n", err)
		return
	}
	agentColor.Printf("agent [%s]> %s\n\n", strings.ToLower(data.Phase), data.ReplyText)
}

func (c *client) upload(sessionID, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		systemColor.Println("usage: /upload <path> <category>")
		return
	}
	path, category := parts[0], parts[1]

	content, err := os.ReadFile(path)
	if err != nil {
		errorColor.Printf("cannot read %s: %v\n", path, err)
		return
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("session_id", sessionID)
	_ = writer.WriteField("category_hint", category)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		errorColor.Printf("upload failed: %v\n", err)
		return
	}
	if _, err := part.Write(content); err != nil {
		errorColor.Printf("upload failed: %v\n", err)
		return
	}
	writer.Close()

	resp, err := c.http.Post(c.baseURL+"/api/document/v1/upload", writer.FormDataContentType(), &body)
	if err != nil {
		errorColor.Printf("upload failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		errorColor.Printf("bad response: %v\n", err)
		return
	}
	if !env.Success {
		errorColor.Printf("upload rejected: %s\n", env.Message)
		return
	}

	var data uploadData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		errorColor.Printf("bad response: %v\n", err)
		return
	}
	systemColor.Printf("Uploaded %s as %s: %d fields extracted.\n\n",
		filepath.Base(path), data.Category, len(data.ExtractedFields))
}

func (c *client) printTypes() {
	resp, err := c.http.Get(c.baseURL + "/api/document/v1/types")
	if err != nil {
		errorColor.Printf("request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	systemColor.Println(string(body))
}
