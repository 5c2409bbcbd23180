package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:8000"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{} // No timeout, local LLMs can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting End-to-End Companion Probe\n")

	// 1. Health check (provider availability)
	color.Yellow("\n[1] GET /health")
	resp, body, err := sendRequest("GET", "/health", nil)
	if err != nil {
		color.Red("Failed: %v (is the server running?)", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var healthResp map[string]interface{}
	json.Unmarshal(body, &healthResp)
	prettyPrint(healthResp)

	// 2. Upload a small text document
	color.Yellow("\n[2] POST /upload")
	docID := uploadSample()
	if docID == "" {
		color.Red("Failed: upload returned no document id")
		os.Exit(1)
	}
	color.Green("Document accepted: %s", docID)

	// 3. Poll until ingestion settles
	color.Yellow("\n[3] GET /documents/%s (waiting for ready)", docID)
	status := waitForStatus(docID, 30*time.Second)
	if status != "ready" {
		color.Red("Document did not become ready (status=%s)", status)
		os.Exit(1)
	}
	color.Green("Document is ready")

	// 4. Non-streaming chat grounded on the document
	color.Yellow("\n[4] POST /chat (stream=false)")
	chatReq := map[string]interface{}{
		"message":      "What color is the sky in the uploaded document?",
		"document_ids": []string{docID},
		"stream":       false,
	}
	resp, body, err = sendRequest("POST", "/chat", chatReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var chatResp map[string]interface{}
	json.Unmarshal(body, &chatResp)
	prettyPrint(chatResp)

	conversationID, _ := chatResp["conversation_id"].(string)

	// 5. Streaming chat on the same conversation
	color.Yellow("\n[5] POST /chat (stream=true)")
	streamChat(conversationID, docID)

	// 6. Conversation history round-trip
	if conversationID != "" {
		color.Yellow("\n[6] GET /conversations/%s", conversationID)
		resp, body, err = sendRequest("GET", "/conversations/"+conversationID, nil)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		color.Green("Status: %s", resp.Status)
		var convResp map[string]interface{}
		json.Unmarshal(body, &convResp)
		prettyPrint(convResp)
	}

	// 7. Cleanup
	color.Yellow("\n[7] DELETE /documents/%s", docID)
	resp, _, err = sendRequest("DELETE", "/documents/"+docID, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	color.Cyan("\n✅ Probe completed")
}

func uploadSample() string {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "probe.txt")
	fw.Write([]byte("The sky in this document is green. This file exists only to exercise the ingestion pipeline end to end."))
	mw.Close()

	req, _ := http.NewRequest("POST", baseURL+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var res map[string]interface{}
	json.Unmarshal(body, &res)
	prettyPrint(res)

	id, _ := res["id"].(string)
	return id
}

func waitForStatus(docID string, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	status := "unknown"
	for time.Now().Before(deadline) {
		_, body, err := sendRequest("GET", "/documents/"+docID, nil)
		if err != nil {
			return status
		}
		var res map[string]interface{}
		json.Unmarshal(body, &res)
		if s, ok := res["status"].(string); ok {
			status = s
		}
		if status == "ready" || status == "failed" {
			return status
		}
		time.Sleep(time.Second)
	}
	return status
}

func streamChat(conversationID, docID string) {
	payload := map[string]interface{}{
		"message":      "Summarize the document in one sentence.",
		"document_ids": []string{docID},
		"stream":       true,
	}
	if conversationID != "" {
		payload["conversation_id"] = conversationID
	}

	jsonBody, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", baseURL+"/chat", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		return
	}
	defer resp.Body.Close()

	color.Green("Status: %s (conversation %s)", resp.Status, resp.Header.Get("X-Conversation-Id"))

	fragments := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			color.Green("\nStream finished cleanly (%d fragments)", fragments)
			return
		}
		if strings.HasPrefix(data, "[ERROR]") {
			color.Red("\nStream error: %s", data)
			return
		}
		fragments++
		fmt.Print(data)
	}
	color.Red("\nStream ended without [DONE] marker (%d fragments)", fragments)
}
