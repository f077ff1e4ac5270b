package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "requests":
		handleRequests(args)
	case "validate":
		handleValidate(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workorbit auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleRequests(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workorbit requests <list|approve|reject>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listRequests(args[1:])
	case "approve":
		approveRequest(args[1:])
	case "reject":
		rejectRequest(args[1:])
	default:
		fmt.Printf("unknown requests command: %s\n", subCmd)
	}
}

func handleValidate(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: workorbit validate <org-code|hr-code> <code>")
		return
	}
	if len(args) < 2 {
		fmt.Println("Error: code is required")
		return
	}

	switch args[0] {
	case "org-code":
		validateCode("org-code", args[1])
	case "hr-code":
		validateCode("hr-code", args[1])
	default:
		fmt.Printf("unknown validate command: %s\n", args[0])
	}
}

// envelope mirrors the server's uniform response body
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result envelope
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != 200 || !result.Success {
		fmt.Printf("✗ Login failed: %s\n", result.Error)
		return
	}

	var login struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	json.Unmarshal(result.Data, &login)
	if login.Token == "" {
		fmt.Println("✗ Login response missing token")
		return
	}
	saveToken(login.Token)
	fmt.Printf("✓ Logged in as: %s (%s)\n", *email, login.Role)
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Request commands
func listRequests(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/hierarchy/requests/pending", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result envelope
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != 200 || !result.Success {
		fmt.Printf("✗ List failed: %s\n", result.Error)
		return
	}

	var requests []struct {
		ID            string `json:"id"`
		RequestType   string `json:"requestType"`
		RequestedRole string `json:"requestedRole"`
		Status        string `json:"status"`
		CreatedAt     string `json:"createdAt"`
	}
	json.Unmarshal(result.Data, &requests)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tROLE\tSTATUS\tCREATED")
	for _, r := range requests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.RequestType, r.RequestedRole, r.Status, r.CreatedAt)
	}
	w.Flush()
}

func approveRequest(args []string) {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	id := fs.String("id", "", "join request id")
	department := fs.String("department", "", "department override (optional)")
	designation := fs.String("designation", "", "designation override (optional)")
	message := fs.String("message", "", "response message (optional)")

	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{}
	if *department != "" {
		payload["department"] = *department
	}
	if *designation != "" {
		payload["designation"] = *designation
	}
	if *message != "" {
		payload["message"] = *message
	}

	result, status, err := putJSON("/hierarchy/requests/"+*id+"/approve", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != 200 || !result.Success {
		fmt.Printf("✗ Approve failed: %s\n", result.Error)
		return
	}

	var decision struct {
		UserStatus string `json:"userStatus"`
		EmployeeID string `json:"employeeId"`
		HRCode     string `json:"hrCode"`
	}
	json.Unmarshal(result.Data, &decision)
	fmt.Printf("✓ Approved. User is now %s", decision.UserStatus)
	if decision.HRCode != "" {
		fmt.Printf(" with HR code %s", decision.HRCode)
	}
	if decision.EmployeeID != "" {
		fmt.Printf(" with employee ID %s", decision.EmployeeID)
	}
	fmt.Println()
}

func rejectRequest(args []string) {
	fs := flag.NewFlagSet("reject", flag.ExitOnError)
	id := fs.String("id", "", "join request id")
	reason := fs.String("reason", "", "rejection reason (optional)")

	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{}
	if *reason != "" {
		payload["reason"] = *reason
	}

	result, status, err := putJSON("/hierarchy/requests/"+*id+"/reject", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != 200 || !result.Success {
		fmt.Printf("✗ Reject failed: %s\n", result.Error)
		return
	}

	fmt.Println("✓ Rejected")
}

// Validate commands
func validateCode(kind, code string) {
	resp, err := http.Get(getAPIURL() + "/hierarchy/validate/" + kind + "/" + code)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result envelope
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != 200 || !result.Success {
		fmt.Printf("✗ %s invalid: %s\n", code, result.Error)
		return
	}

	var summary struct {
		OrganizationName string `json:"organizationName"`
	}
	json.Unmarshal(result.Data, &summary)
	fmt.Printf("✓ %s belongs to %s\n", code, summary.OrganizationName)
}

// Helper functions
func putJSON(path string, payload map[string]string) (envelope, int, error) {
	var result envelope

	data, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPut, getAPIURL()+path, bytes.NewReader(data))
	if err != nil {
		return result, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return result, 0, err
	}
	defer resp.Body.Close()

	json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func getAPIURL() string {
	if url := os.Getenv("WORKORBIT_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.workorbit/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.workorbit", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`WorkOrbit CLI

Usage:
  workorbit <command> [options]

Commands:
  auth       Authentication (login, logout, who)
  requests   Join request operations (list, approve, reject)
  validate   Code validation (org-code, hr-code)
  help       Show this help message

Environment Variables:
  WORKORBIT_API    API endpoint (default: http://localhost:8080/api)

Examples:
  workorbit auth login -email admin@example.com -password pass
  workorbit requests list
  workorbit requests approve -id <request-id> -department Engineering
  workorbit validate org-code ORG001
`)
}
