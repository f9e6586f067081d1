// Command shadow_compare checks that the Go API serves the same roster and
// billing-status records as the legacy API after a legacy import.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// target pairs a legacy path with its Go counterpart. Key names the field
// that identifies a record in both responses.
type target struct {
	Name       string
	LegacyPath string
	GoPath     string
	Key        string
	Critical   bool
}

type comparison struct {
	Target        target
	LegacyCount   int
	GoCount       int
	MissingInGo   []string
	MissingLegacy []string
	Changed       []string
	Error         error
}

func (c comparison) matches() bool {
	return c.Error == nil && len(c.MissingInGo) == 0 && len(c.MissingLegacy) == 0 && len(c.Changed) == 0
}

// ignoredFields differ by construction between the stores.
var ignoredFields = map[string]struct{}{
	"_id": {}, "__v": {}, "id": {}, "createdAt": {}, "updatedAt": {}, "password": {}, "passwordHash": {},
}

func main() {
	var (
		goBase     string
		legacyBase string
		month      string
		username   string
		password   string
		timeout    time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api", "Legacy API base URL")
	flag.StringVar(&month, "month", time.Now().Format("2006-01"), "Month whose billing statuses are compared")
	flag.StringVar(&username, "username", os.Getenv("ADMIN_USERNAME"), "Go API username")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "Go API password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	token, err := login(client, goBase, username, password)
	if err != nil {
		log.Fatalf("failed to log in to go api: %v", err)
	}

	var breaking, optional int
	var results []comparison
	for _, t := range targets(month) {
		res := compareTarget(client, goBase, legacyBase, token, t)
		if !res.matches() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func targets(month string) []target {
	return []target{
		{Name: "students", LegacyPath: "/students", GoPath: "/students?limit=0", Key: "studentId", Critical: true},
		{Name: "teachers", LegacyPath: "/teachers", GoPath: "/teachers?limit=0", Key: "teacherId", Critical: true},
		{Name: "courses", LegacyPath: "/courses", GoPath: "/courses?limit=0", Key: "courseId", Critical: true},
		{Name: "student statuses", LegacyPath: "/student-billing-status?month=" + month, GoPath: "/student-billing-status?month=" + month, Key: "studentId"},
		{Name: "teacher statuses", LegacyPath: "/teacher-billing-status?month=" + month, GoPath: "/teacher-billing-status?month=" + month, Key: "teacherId"},
	}
}

func login(client *http.Client, base, username, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := client.Post(strings.TrimRight(base, "/")+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}
	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return envelope.Data.Token, nil
}

func compareTarget(client *http.Client, goBase, legacyBase, token string, tgt target) comparison {
	comp := comparison{Target: tgt}

	legacyBody, err := fetch(client, legacyBase+tgt.LegacyPath, "")
	if err != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", err)
		return comp
	}
	goBody, err := fetch(client, goBase+tgt.GoPath, token)
	if err != nil {
		comp.Error = fmt.Errorf("go request failed: %w", err)
		return comp
	}

	legacyRows, err := decodeRows(legacyBody, false)
	if err != nil {
		comp.Error = fmt.Errorf("decode legacy body: %w", err)
		return comp
	}
	goRows, err := decodeRows(goBody, true)
	if err != nil {
		comp.Error = fmt.Errorf("decode go body: %w", err)
		return comp
	}
	return diffRows(comp, legacyRows, goRows)
}

func fetch(client *http.Client, url, token string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}

// decodeRows reads a JSON array, unwrapping the Go response envelope when asked.
func decodeRows(body []byte, enveloped bool) ([]map[string]interface{}, error) {
	if enveloped {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		body = envelope.Data
	}
	var rows []map[string]interface{}
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// diffRows compares rows as multisets keyed by tgt.Key. Duplicate keys are
// numbered in order of appearance so "S001#2" only matches a second S001.
func diffRows(comp comparison, legacyRows, goRows []map[string]interface{}) comparison {
	comp.LegacyCount = len(legacyRows)
	comp.GoCount = len(goRows)
	legacyByKey := indexRows(legacyRows, comp.Target.Key)
	goByKey := indexRows(goRows, comp.Target.Key)

	for key, legacyRow := range legacyByKey {
		goRow, ok := goByKey[key]
		if !ok {
			comp.MissingInGo = append(comp.MissingInGo, key)
			continue
		}
		if !rowsEqual(legacyRow, goRow) {
			comp.Changed = append(comp.Changed, key)
		}
	}
	for key := range goByKey {
		if _, ok := legacyByKey[key]; !ok {
			comp.MissingLegacy = append(comp.MissingLegacy, key)
		}
	}
	sort.Strings(comp.MissingInGo)
	sort.Strings(comp.MissingLegacy)
	sort.Strings(comp.Changed)
	return comp
}

func indexRows(rows []map[string]interface{}, key string) map[string]map[string]interface{} {
	seen := map[string]int{}
	out := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		id := fmt.Sprint(row[key])
		seen[id]++
		if seen[id] > 1 {
			id = fmt.Sprintf("%s#%d", id, seen[id])
		}
		out[id] = row
	}
	return out
}

// rowsEqual compares the fields present in the legacy row. Fields the legacy
// store never wrote are allowed to carry Go defaults.
func rowsEqual(legacyRow, goRow map[string]interface{}) bool {
	for field, legacyValue := range legacyRow {
		if _, skip := ignoredFields[field]; skip {
			continue
		}
		if !valuesEqual(legacyValue, goRow[field]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if a == nil {
		return b == nil || b == "" || b == false
	}
	return fmt.Sprint(normalize(a)) == fmt.Sprint(normalize(b))
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	case string:
		return strings.TrimSpace(val)
	}
	return v
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.matches() {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, res.Target.Name)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Legacy rows: %d | Go rows: %d | Critical: %t\n", res.LegacyCount, res.GoCount, res.Target.Critical)
		if len(res.MissingInGo) > 0 {
			fmt.Printf("  Missing in Go: %s\n", strings.Join(res.MissingInGo, ", "))
		}
		if len(res.MissingLegacy) > 0 {
			fmt.Printf("  Only in Go: %s\n", strings.Join(res.MissingLegacy, ", "))
		}
		if len(res.Changed) > 0 {
			fmt.Printf("  Changed: %s\n", strings.Join(res.Changed, ", "))
		}
	}
}
